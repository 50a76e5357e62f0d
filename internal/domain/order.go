package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFailed    OrderStatus = "FAILED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ErrTransitionRejected signals an illegal order status transition.
var ErrTransitionRejected = errors.New("order status transition rejected")

// orderTransitions defines the legal status moves. FAILED, DELIVERED and
// CANCELLED are terminal: they have no entry here.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition reports whether moving from -> to changes anything. A move to
// the current status is an accepted no-op (changed=false): the webhook and
// poll channels both redeliver outcomes and must stay idempotent. Anything
// outside the transition table is ErrTransitionRejected.
func Transition(from, to OrderStatus) (bool, error) {
	if from == to {
		return false, nil
	}
	if !CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrTransitionRejected, from, to)
	}
	return true, nil
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice Cents  `json:"unit_price"`
	Image     string `json:"image,omitempty"`
}

type ShippingAddress struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
}

// Order is the persisted record of one purchase attempt. Items and the
// shipping address are captured at order time so later catalog edits cannot
// alter a placed order.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	Items            []OrderItem     `json:"items"`
	TotalAmount      Cents           `json:"total_amount"`
	ShippingAddress  ShippingAddress `json:"shipping_address"`
	Status           OrderStatus     `json:"status"`
	GatewaySessionID string          `json:"gateway_session_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func NewOrder(ownerID uuid.UUID, items []OrderItem, address ShippingAddress) *Order {
	now := time.Now()
	order := &Order{
		ID:              uuid.New(),
		OrderNumber:     NewOrderNumber(),
		OwnerID:         ownerID,
		Items:           items,
		ShippingAddress: address,
		Status:          OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.TotalAmount = order.Subtotal()
	return order
}

// NewOrderNumber builds a human-facing order number. The millisecond
// timestamp plus a random suffix makes collisions negligible; the database
// unique constraint catches the rest.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%d", time.Now().UnixMilli(), rand.Intn(1000))
}

func (o *Order) Subtotal() Cents {
	var subtotal Cents
	for _, item := range o.Items {
		subtotal += item.UnitPrice * Cents(item.Quantity)
	}
	return subtotal
}
