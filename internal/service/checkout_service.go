package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/domain"
	"github.com/ah-malik/SkyGloss-backend/internal/gateway"
	"github.com/ah-malik/SkyGloss-backend/internal/messaging"
)

// CheckoutService owns the order payment lifecycle: session initiation, the
// webhook channel, the polling channel and administrative status changes.
// Every status write funnels through applyTransition so both confirmation
// channels converge on the same result no matter the delivery order.
type CheckoutService struct {
	orders    OrderStore
	gateway   gateway.Gateway
	publisher EventPublisher
	cfg       PricingConfig
}

func NewCheckoutService(orders OrderStore, gw gateway.Gateway, publisher EventPublisher, cfg PricingConfig) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		gateway:   gw,
		publisher: publisher,
		cfg:       cfg,
	}
}

type CheckoutResult struct {
	RedirectURL string
	Order       *domain.Order
}

// CreateCheckoutSession computes the chargeable total, persists a pending
// order and opens a gateway session. The role only selects the post-payment
// redirect destination; the flow itself is one implementation for all
// callers.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, ownerID uuid.UUID, role string, request domain.CreateOrderRequest) (*CheckoutResult, error) {
	if len(request.Items) == 0 {
		return nil, ErrEmptyCart
	}

	order := domain.NewOrder(ownerID, request.ToOrderItems(), request.ToShippingAddress())
	subtotal := order.Subtotal()
	shipping := domain.Cents(s.cfg.ShippingFeeCents)
	tax := subtotal.TaxOn(s.cfg.TaxRateBps)

	// Provisional total; overwritten with subtotal+shipping+tax once the
	// session exists.
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("order creation error: %w", err)
	}

	log.Printf("Order created: OrderID=%s OrderNumber=%s OwnerID=%s Subtotal=%.2f",
		order.ID, order.OrderNumber, ownerID, subtotal.Dollars())

	params := s.buildSessionParams(order, shipping, tax, role)

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.gatewayTimeout())
	defer cancel()

	session, err := s.gateway.CreateCheckoutSession(gatewayCtx, params)
	if err != nil {
		// Intentional: the sessionless PENDING order stays behind as a
		// record of the attempt.
		log.Printf("Gateway session creation failed: OrderID=%s err=%v", order.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayCall, err)
	}

	finalTotal := subtotal + shipping + tax
	if err := s.orders.AttachSession(ctx, order.ID, session.ID, finalTotal); err != nil {
		return nil, fmt.Errorf("session attach error: %w", err)
	}
	order.GatewaySessionID = session.ID
	order.TotalAmount = finalTotal

	s.publish(messaging.CheckoutEvent{
		Type:        messaging.OrderCreated,
		EntityID:    order.ID,
		OwnerID:     order.OwnerID,
		Status:      string(order.Status),
		AmountCents: int64(finalTotal),
	})

	log.Printf("Checkout session created: OrderID=%s SessionID=%s Total=%.2f",
		order.ID, session.ID, finalTotal.Dollars())

	return &CheckoutResult{RedirectURL: session.URL, Order: order}, nil
}

func (s *CheckoutService) buildSessionParams(order *domain.Order, shipping, tax domain.Cents, role string) gateway.SessionParams {
	lineItems := make([]gateway.LineItem, 0, len(order.Items)+2)
	for _, item := range order.Items {
		lineItems = append(lineItems, gateway.LineItem{
			Name:       item.Name,
			UnitAmount: int64(item.UnitPrice),
			Quantity:   int64(item.Quantity),
			Image:      item.Image,
			Metadata: map[string]string{
				"size":      item.Size,
				"productId": item.ProductID,
			},
		})
	}
	lineItems = append(lineItems, gateway.LineItem{
		Name:       "Shipping",
		UnitAmount: int64(shipping),
		Quantity:   1,
	})
	if tax > 0 {
		lineItems = append(lineItems, gateway.LineItem{
			Name:       "Tax (Estimated)",
			UnitAmount: int64(tax),
			Quantity:   1,
		})
	}

	redirectBase := s.cfg.FrontendURL + s.redirectPath(role)

	return gateway.SessionParams{
		LineItems:         lineItems,
		SuccessURL:        fmt.Sprintf("%s?success=true&order_id=%s", redirectBase, order.ID),
		CancelURL:         redirectBase + "?canceled=true",
		ClientReferenceID: order.ID.String(),
		CustomerEmail:     order.ShippingAddress.Email,
		// The order id rides in both the reference field and metadata; the
		// webhook resolver accepts either.
		Metadata: map[string]string{"orderId": order.ID.String()},
	}
}

func (s *CheckoutService) redirectPath(role string) string {
	if role == "distributor" {
		return s.cfg.DistributorRedirectPath
	}
	return s.cfg.ShopRedirectPath
}

// HandleWebhook authenticates and applies one gateway notification. All
// signature failures return before any state is touched. Redelivery of an
// already-applied event is a no-op.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.gateway.VerifyEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	var target domain.OrderStatus
	switch event.Type {
	case gateway.EventCheckoutCompleted:
		target = domain.OrderStatusPaid
	case gateway.EventAsyncPaymentFailed, gateway.EventCheckoutSessionExpire:
		target = domain.OrderStatusFailed
	default:
		// Recognized delivery, irrelevant kind: ack so the gateway stops
		// redelivering.
		log.Printf("Webhook ignored: type=%s", event.Type)
		return nil
	}

	orderID, ok := resolveOrderID(event)
	if !ok {
		log.Printf("Webhook carries no resolvable order id: type=%s session=%s", event.Type, event.Session.ID)
		return nil
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		log.Printf("Webhook order lookup failed: OrderID=%s err=%v", orderID, err)
		return nil
	}

	if _, err := s.applyTransition(ctx, order, target); err != nil {
		return err
	}
	return nil
}

func resolveOrderID(event *gateway.Event) (uuid.UUID, bool) {
	ref := event.Session.ClientReferenceID
	if ref == "" {
		ref = event.Session.Metadata["orderId"]
	}
	if ref == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// VerifyPayment is the synchronous fallback channel: it asks the gateway
// for the live session state and applies the outcome through the same
// transition path the webhook uses.
func (s *CheckoutService) VerifyPayment(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Never submitted to the gateway: nothing to verify.
	if order.GatewaySessionID == "" {
		return order, nil
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.gatewayTimeout())
	defer cancel()

	session, err := s.gateway.RetrieveSession(gatewayCtx, order.GatewaySessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayCall, err)
	}

	switch {
	case session.PaymentStatus == gateway.PaymentStatusPaid:
		return s.applyTransition(ctx, order, domain.OrderStatusPaid)
	case session.Status == gateway.SessionStatusExpired:
		return s.applyTransition(ctx, order, domain.OrderStatusFailed)
	default:
		// Still open: the payer has not acted yet.
		return order, nil
	}
}

// SetStatus is the administrative entry point (marking SHIPPED, DELIVERED,
// CANCELLED). It goes through the same state machine as the gateway
// channels.
func (s *CheckoutService) SetStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(target) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, order, target)
}

// applyTransition is the single mutation authority. Ownership of a write is
// established by the conditional update succeeding; losing the race to the
// other channel is fine as long as both were driving toward the same
// status.
func (s *CheckoutService) applyTransition(ctx context.Context, order *domain.Order, target domain.OrderStatus) (*domain.Order, error) {
	changed, err := domain.Transition(order.Status, target)
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}

	rows, err := s.orders.UpdateStatusFrom(ctx, order.ID, order.Status, target)
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		// Someone else moved the order first. Statuses only move forward,
		// so a single re-read settles it: same target means the other
		// channel won, anything else is a genuine rejection.
		fresh, err := s.orders.GetOrderByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if _, err := domain.Transition(fresh.Status, target); err != nil {
			return nil, err
		}
		if fresh.Status == target {
			return fresh, nil
		}
		return nil, fmt.Errorf("%w: concurrent update from %s", domain.ErrTransitionRejected, fresh.Status)
	}

	order.Status = target
	s.publish(messaging.CheckoutEvent{
		Type:        eventTypeForStatus(target),
		EntityID:    order.ID,
		OwnerID:     order.OwnerID,
		Status:      string(target),
		AmountCents: int64(order.TotalAmount),
	})

	log.Printf("Order status changed: OrderID=%s Status=%s", order.ID, target)
	return order, nil
}

func eventTypeForStatus(status domain.OrderStatus) messaging.EventType {
	switch status {
	case domain.OrderStatusPaid:
		return messaging.OrderPaid
	case domain.OrderStatusFailed:
		return messaging.OrderFailed
	default:
		return messaging.OrderStatusChanged
	}
}

func (s *CheckoutService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByID(ctx, orderID)
}

func (s *CheckoutService) GetMyOrders(ctx context.Context, ownerID uuid.UUID) ([]*domain.Order, error) {
	return s.orders.ListOrdersByOwner(ctx, ownerID)
}

func (s *CheckoutService) GetAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.ListAllOrders(ctx)
}

func (s *CheckoutService) publish(event messaging.CheckoutEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCheckoutEvent(event); err != nil {
		log.Printf("Event publish failed (ignored): type=%s entity=%s err=%v", event.Type, event.EntityID, err)
	}
}
