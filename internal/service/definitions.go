package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/domain"
	"github.com/ah-malik/SkyGloss-backend/internal/messaging"
)

// OrderStore is the persistence surface the checkout flow needs. Status
// writes are conditional: rows-affected tells the caller whether it owned
// the transition or lost the race to the other confirmation channel.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	AttachSession(ctx context.Context, orderID uuid.UUID, sessionID string, finalTotal domain.Cents) error
	UpdateStatusFrom(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (int64, error)
}

type CertificationStore interface {
	CreateCertification(ctx context.Context, cert *domain.CertificationRequest) error
	GetCertificationByID(ctx context.Context, certID uuid.UUID) (*domain.CertificationRequest, error)
	GetCertificationBySessionID(ctx context.Context, sessionID string) (*domain.CertificationRequest, error)
	ListCertificationsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.CertificationRequest, error)
	ListAllCertifications(ctx context.Context) ([]*domain.CertificationRequest, error)
	ListCertificationsByReview(ctx context.Context, status domain.CertReviewStatus) ([]*domain.CertificationRequest, error)
	AttachSession(ctx context.Context, certID uuid.UUID, sessionID string) error
	UpdatePaymentStatusFrom(ctx context.Context, certID uuid.UUID, from, to domain.CertPaymentStatus) (int64, error)
	UpdateReviewStatus(ctx context.Context, certID uuid.UUID, status domain.CertReviewStatus) error
}

// EventPublisher emits lifecycle events for downstream consumers. A nil
// publisher disables publishing; failures are logged, never propagated.
type EventPublisher interface {
	PublishCheckoutEvent(event messaging.CheckoutEvent) error
}

// PricingConfig carries the checkout pricing knobs and redirect targets.
type PricingConfig struct {
	ShippingFeeCents      int64
	TaxRateBps            int64
	CertificationFeeCents int64

	FrontendURL             string
	ShopRedirectPath        string
	DistributorRedirectPath string

	GatewayTimeout time.Duration
}

func (c PricingConfig) gatewayTimeout() time.Duration {
	if c.GatewayTimeout <= 0 {
		return 15 * time.Second
	}
	return c.GatewayTimeout
}
