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

// CertificationService runs the certification-request variant of the
// checkout flow: a single flat fee instead of a cart, plus an admin review
// axis that is entirely independent of payment.
type CertificationService struct {
	certs     CertificationStore
	gateway   gateway.Gateway
	publisher EventPublisher
	cfg       PricingConfig
}

func NewCertificationService(certs CertificationStore, gw gateway.Gateway, publisher EventPublisher, cfg PricingConfig) *CertificationService {
	return &CertificationService{
		certs:     certs,
		gateway:   gw,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *CertificationService) CreateCheckoutSession(ctx context.Context, ownerID uuid.UUID, request domain.CreateCertificationRequest) (*CertificationResult, error) {
	fee := domain.Cents(s.cfg.CertificationFeeCents)
	cert := domain.NewCertificationRequest(
		ownerID, fee,
		request.Country, request.RequesterName, request.ShopName,
		request.ShopEmail, request.ShopPhone, request.ShopCity,
	)

	if err := s.certs.CreateCertification(ctx, cert); err != nil {
		return nil, fmt.Errorf("certification creation error: %w", err)
	}

	redirectBase := s.cfg.FrontendURL + s.cfg.DistributorRedirectPath
	params := gateway.SessionParams{
		LineItems: []gateway.LineItem{{
			Name:       "Distributor Certification",
			UnitAmount: int64(fee),
			Quantity:   1,
		}},
		SuccessURL:        fmt.Sprintf("%s?success=true&certification_id=%s", redirectBase, cert.ID),
		CancelURL:         redirectBase + "?canceled=true",
		ClientReferenceID: cert.ID.String(),
		CustomerEmail:     cert.ShopEmail,
		Metadata:          map[string]string{"certificationId": cert.ID.String()},
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.gatewayTimeout())
	defer cancel()

	session, err := s.gateway.CreateCheckoutSession(gatewayCtx, params)
	if err != nil {
		log.Printf("Gateway session creation failed: CertificationID=%s err=%v", cert.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayCall, err)
	}

	if err := s.certs.AttachSession(ctx, cert.ID, session.ID); err != nil {
		return nil, fmt.Errorf("session attach error: %w", err)
	}
	cert.GatewaySessionID = session.ID

	s.publish(messaging.CheckoutEvent{
		Type:        messaging.CertificationCreated,
		EntityID:    cert.ID,
		OwnerID:     cert.OwnerID,
		Status:      string(cert.PaymentStatus),
		AmountCents: int64(fee),
	})

	log.Printf("Certification checkout session created: CertificationID=%s SessionID=%s", cert.ID, session.ID)
	return &CertificationResult{RedirectURL: session.URL, Certification: cert}, nil
}

type CertificationResult struct {
	RedirectURL   string
	Certification *domain.CertificationRequest
}

func (s *CertificationService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.gateway.VerifyEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	var target domain.CertPaymentStatus
	switch event.Type {
	case gateway.EventCheckoutCompleted:
		target = domain.CertPaymentPaid
	case gateway.EventAsyncPaymentFailed, gateway.EventCheckoutSessionExpire:
		target = domain.CertPaymentFailed
	default:
		log.Printf("Certification webhook ignored: type=%s", event.Type)
		return nil
	}

	cert, ok := s.resolveCertification(ctx, event)
	if !ok {
		log.Printf("Certification webhook carries no resolvable id: type=%s session=%s", event.Type, event.Session.ID)
		return nil
	}

	_, err = s.applyPaymentTransition(ctx, cert, target)
	return err
}

// resolveCertification prefers the explicit reference, falls back to
// metadata and finally to the session id itself.
func (s *CertificationService) resolveCertification(ctx context.Context, event *gateway.Event) (*domain.CertificationRequest, bool) {
	ref := event.Session.ClientReferenceID
	if ref == "" {
		ref = event.Session.Metadata["certificationId"]
	}
	if ref != "" {
		if id, err := uuid.Parse(ref); err == nil {
			if cert, err := s.certs.GetCertificationByID(ctx, id); err == nil {
				return cert, true
			}
		}
	}
	if event.Session.ID != "" {
		if cert, err := s.certs.GetCertificationBySessionID(ctx, event.Session.ID); err == nil {
			return cert, true
		}
	}
	return nil, false
}

func (s *CertificationService) VerifyPayment(ctx context.Context, certID uuid.UUID) (*domain.CertificationRequest, error) {
	cert, err := s.certs.GetCertificationByID(ctx, certID)
	if err != nil {
		return nil, err
	}

	if cert.GatewaySessionID == "" {
		return cert, nil
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.gatewayTimeout())
	defer cancel()

	session, err := s.gateway.RetrieveSession(gatewayCtx, cert.GatewaySessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayCall, err)
	}

	switch {
	case session.PaymentStatus == gateway.PaymentStatusPaid:
		return s.applyPaymentTransition(ctx, cert, domain.CertPaymentPaid)
	case session.Status == gateway.SessionStatusExpired:
		return s.applyPaymentTransition(ctx, cert, domain.CertPaymentFailed)
	default:
		return cert, nil
	}
}

func (s *CertificationService) applyPaymentTransition(ctx context.Context, cert *domain.CertificationRequest, target domain.CertPaymentStatus) (*domain.CertificationRequest, error) {
	changed, err := domain.TransitionCertPayment(cert.PaymentStatus, target)
	if err != nil {
		return nil, err
	}
	if !changed {
		return cert, nil
	}

	rows, err := s.certs.UpdatePaymentStatusFrom(ctx, cert.ID, cert.PaymentStatus, target)
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		fresh, err := s.certs.GetCertificationByID(ctx, cert.ID)
		if err != nil {
			return nil, err
		}
		if fresh.PaymentStatus == target {
			return fresh, nil
		}
		return nil, fmt.Errorf("%w: concurrent update from %s", domain.ErrTransitionRejected, fresh.PaymentStatus)
	}

	cert.PaymentStatus = target
	eventType := messaging.CertificationPaid
	if target == domain.CertPaymentFailed {
		eventType = messaging.CertificationFailed
	}
	s.publish(messaging.CheckoutEvent{
		Type:        eventType,
		EntityID:    cert.ID,
		OwnerID:     cert.OwnerID,
		Status:      string(target),
		AmountCents: int64(cert.Amount),
	})

	log.Printf("Certification payment status changed: CertificationID=%s Status=%s", cert.ID, target)
	return cert, nil
}

// Review records the admin decision on the review axis only. The
// field-scoped write cannot clobber a concurrent payment update.
func (s *CertificationService) Review(ctx context.Context, certID uuid.UUID, decision domain.CertReviewStatus) (*domain.CertificationRequest, error) {
	if !domain.ValidCertReviewStatus(decision) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, decision)
	}

	if err := s.certs.UpdateReviewStatus(ctx, certID, decision); err != nil {
		return nil, err
	}

	cert, err := s.certs.GetCertificationByID(ctx, certID)
	if err != nil {
		return nil, err
	}

	s.publish(messaging.CheckoutEvent{
		Type:        messaging.CertificationReviewed,
		EntityID:    cert.ID,
		OwnerID:     cert.OwnerID,
		Status:      string(decision),
		AmountCents: int64(cert.Amount),
	})
	return cert, nil
}

func (s *CertificationService) GetMyRequests(ctx context.Context, ownerID uuid.UUID) ([]*domain.CertificationRequest, error) {
	return s.certs.ListCertificationsByOwner(ctx, ownerID)
}

// GetAllRequests lists every certification request, optionally narrowed to
// one review decision.
func (s *CertificationService) GetAllRequests(ctx context.Context, review domain.CertReviewStatus) ([]*domain.CertificationRequest, error) {
	if review == "" {
		return s.certs.ListAllCertifications(ctx)
	}
	if !domain.ValidCertReviewStatus(review) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, review)
	}
	return s.certs.ListCertificationsByReview(ctx, review)
}

func (s *CertificationService) publish(event messaging.CheckoutEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCheckoutEvent(event); err != nil {
		log.Printf("Event publish failed (ignored): type=%s entity=%s err=%v", event.Type, event.EntityID, err)
	}
}
