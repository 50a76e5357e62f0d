package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/auth"
	"github.com/ah-malik/SkyGloss-backend/internal/domain"
	"github.com/ah-malik/SkyGloss-backend/internal/gateway"
	"github.com/ah-malik/SkyGloss-backend/internal/httpx"
	"github.com/ah-malik/SkyGloss-backend/internal/repository"
	"github.com/ah-malik/SkyGloss-backend/internal/service"
)

type OrderHandler struct {
	checkout *service.CheckoutService
}

func NewOrderHandler(checkout *service.CheckoutService) *OrderHandler {
	return &OrderHandler{checkout: checkout}
}

// CreateCheckoutSession accepts the storefront cart, persists a pending
// order and answers with the gateway redirect URL.
func (h *OrderHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	ownerID, err := requesterID(c)
	if err != nil {
		return httpx.UnauthorizedResponse(c, "Invalid requester identity")
	}

	var request domain.CreateOrderRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	for i, item := range request.Items {
		if item.Quantity <= 0 {
			return httpx.BadRequestResponse(c, "Invalid quantity", map[string]interface{}{
				"item_index": i,
				"quantity":   item.Quantity,
			})
		}
		if item.Price < 0 {
			return httpx.BadRequestResponse(c, "Invalid price", map[string]interface{}{
				"item_index": i,
				"price":      item.Price,
			})
		}
	}

	result, err := h.checkout.CreateCheckoutSession(c.Context(), ownerID, auth.Role(c), request)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			return httpx.BadRequestResponse(c, "Cart is empty", nil)
		case errors.Is(err, service.ErrGatewayCall):
			return httpx.InternalServerErrorResponse(c, "Payment provider unavailable", nil)
		default:
			log.Printf("Checkout session creation error: %v", err)
			return httpx.InternalServerErrorResponse(c, "Checkout session creation failed", nil)
		}
	}

	return httpx.CreatedResponse(c, "Checkout session created", CheckoutSessionResponse{
		RedirectURL: result.RedirectURL,
		OrderID:     result.Order.ID.String(),
		OrderNumber: result.Order.OrderNumber,
	})
}

func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	ownerID, err := requesterID(c)
	if err != nil {
		return httpx.UnauthorizedResponse(c, "Invalid requester identity")
	}

	orders, err := h.checkout.GetMyOrders(c.Context(), ownerID)
	if err != nil {
		log.Printf("Order listing error: OwnerID=%s err=%v", ownerID, err)
		return httpx.InternalServerErrorResponse(c, "Order listing failed", nil)
	}
	return httpx.SuccessResponse(c, "Orders retrieved successfully", mapOrders(orders))
}

func (h *OrderHandler) GetAllOrders(c *fiber.Ctx) error {
	orders, err := h.checkout.GetAllOrders(c.Context())
	if err != nil {
		log.Printf("Order listing error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Order listing failed", nil)
	}
	return httpx.SuccessResponse(c, "Orders retrieved successfully", mapOrders(orders))
}

func (h *OrderHandler) GetOrderByID(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"order_id": c.Params("id"),
		})
	}

	order, err := h.checkout.GetOrderByID(c.Context(), orderID)
	if err != nil {
		return orderLookupError(c, orderID, err)
	}
	if !mayReadOrder(c, order) {
		return httpx.NotFoundResponse(c, "Order not found")
	}
	return httpx.SuccessResponse(c, "Order retrieved successfully", mapOrder(order))
}

// VerifyPayment is the polling fallback the storefront hits on its success
// redirect. It consults the gateway directly, so a lost webhook cannot
// strand a paid order.
func (h *OrderHandler) VerifyPayment(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"order_id": c.Params("orderId"),
		})
	}

	order, err := h.checkout.GetOrderByID(c.Context(), orderID)
	if err != nil {
		return orderLookupError(c, orderID, err)
	}
	if !mayReadOrder(c, order) {
		return httpx.NotFoundResponse(c, "Order not found")
	}

	verified, err := h.checkout.VerifyPayment(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrGatewayCall) {
			return httpx.InternalServerErrorResponse(c, "Payment provider unavailable", nil)
		}
		log.Printf("Payment verification error: OrderID=%s err=%v", orderID, err)
		return httpx.InternalServerErrorResponse(c, "Payment verification failed", nil)
	}
	return httpx.SuccessResponse(c, "Payment verified", mapOrder(verified))
}

// SetStatus is the admin fulfillment endpoint. Transitions the state
// machine refuses come back as a conflict, never a silent overwrite.
func (h *OrderHandler) SetStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"order_id": c.Params("id"),
		})
	}

	var request SetStatusRequest
	if err := c.BodyParser(&request); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", map[string]interface{}{
			"parse_error": err.Error(),
		})
	}

	order, err := h.checkout.SetStatus(c.Context(), orderID, domain.OrderStatus(request.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			return httpx.BadRequestResponse(c, "Unknown order status", map[string]interface{}{
				"status": request.Status,
			})
		case errors.Is(err, domain.ErrTransitionRejected):
			return httpx.ConflictResponse(c, "Status transition not allowed", map[string]interface{}{
				"status": request.Status,
			})
		case errors.Is(err, repository.ErrOrderNotFound):
			return httpx.NotFoundResponse(c, "Order not found")
		default:
			log.Printf("Status update error: OrderID=%s err=%v", orderID, err)
			return httpx.InternalServerErrorResponse(c, "Status update failed", nil)
		}
	}
	return httpx.SuccessResponse(c, "Order status updated", mapOrder(order))
}

// HandleWebhook receives gateway notifications. The raw body is passed
// through untouched because the signature covers the exact bytes sent.
func (h *OrderHandler) HandleWebhook(c *fiber.Ctx) error {
	err := h.checkout.HandleWebhook(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"received": true})
	case errors.Is(err, gateway.ErrMissingSignature),
		errors.Is(err, gateway.ErrInvalidSignature),
		errors.Is(err, gateway.ErrNotConfigured):
		return httpx.BadRequestResponse(c, "Webhook signature verification failed", nil)
	case errors.Is(err, domain.ErrTransitionRejected):
		// Redelivering cannot make a rejected transition legal. Ack it.
		log.Printf("Webhook transition rejected: %v", err)
		return c.JSON(fiber.Map{"received": true})
	default:
		log.Printf("Webhook processing error: %v", err)
		return httpx.InternalServerErrorResponse(c, "Webhook processing failed", nil)
	}
}

func requesterID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(auth.UserID(c))
}

// Admins see every order; everyone else only their own.
func mayReadOrder(c *fiber.Ctx, order *domain.Order) bool {
	if auth.Role(c) == auth.RoleAdmin {
		return true
	}
	return order.OwnerID.String() == auth.UserID(c)
}

func orderLookupError(c *fiber.Ctx, orderID uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return httpx.NotFoundResponse(c, "Order not found")
	}
	log.Printf("Order lookup error: OrderID=%s err=%v", orderID, err)
	return httpx.InternalServerErrorResponse(c, "Order lookup failed", nil)
}
