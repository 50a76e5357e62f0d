package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/domain"
	"github.com/ah-malik/SkyGloss-backend/internal/gateway"
	"github.com/ah-malik/SkyGloss-backend/internal/messaging"
	"github.com/ah-malik/SkyGloss-backend/internal/repository"
)

// fakeOrderStore reproduces the repository's conditional-update semantics
// in memory so the channel-race behavior can be exercised without Postgres.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order

	createErr error
	attachErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uuid.UUID]*domain.Order)}
}

func copyOrder(o *domain.Order) *domain.Order {
	dup := *o
	dup.Items = append([]domain.OrderItem(nil), o.Items...)
	return &dup
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeOrderStore) GetOrderByID(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (f *fakeOrderStore) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.GatewaySessionID == sessionID {
			return copyOrder(order), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeOrderStore) ListOrdersByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, order := range f.orders {
		if order.OwnerID == ownerID {
			out = append(out, copyOrder(order))
		}
	}
	return out, nil
}

func (f *fakeOrderStore) ListAllOrders(_ context.Context) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, order := range f.orders {
		out = append(out, copyOrder(order))
	}
	return out, nil
}

func (f *fakeOrderStore) AttachSession(_ context.Context, orderID uuid.UUID, sessionID string, finalTotal domain.Cents) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.GatewaySessionID != "" {
		return repository.ErrSessionAttached
	}
	order.GatewaySessionID = sessionID
	order.TotalAmount = finalTotal
	return nil
}

func (f *fakeOrderStore) UpdateStatusFrom(_ context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.Status != from {
		return 0, nil
	}
	order.Status = to
	return 1, nil
}

// setStatus mutates the stored record directly, simulating a write by the
// competing channel.
func (f *fakeOrderStore) setStatus(orderID uuid.UUID, status domain.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID].Status = status
}

type fakeCertStore struct {
	mu    sync.Mutex
	certs map[uuid.UUID]*domain.CertificationRequest
}

func newFakeCertStore() *fakeCertStore {
	return &fakeCertStore{certs: make(map[uuid.UUID]*domain.CertificationRequest)}
}

func copyCert(c *domain.CertificationRequest) *domain.CertificationRequest {
	dup := *c
	return &dup
}

func (f *fakeCertStore) CreateCertification(_ context.Context, cert *domain.CertificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.certs[cert.ID] = copyCert(cert)
	return nil
}

func (f *fakeCertStore) GetCertificationByID(_ context.Context, certID uuid.UUID) (*domain.CertificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.certs[certID]
	if !ok {
		return nil, repository.ErrCertificationNotFound
	}
	return copyCert(cert), nil
}

func (f *fakeCertStore) GetCertificationBySessionID(_ context.Context, sessionID string) (*domain.CertificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cert := range f.certs {
		if cert.GatewaySessionID == sessionID {
			return copyCert(cert), nil
		}
	}
	return nil, repository.ErrCertificationNotFound
}

func (f *fakeCertStore) ListCertificationsByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.CertificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CertificationRequest
	for _, cert := range f.certs {
		if cert.OwnerID == ownerID {
			out = append(out, copyCert(cert))
		}
	}
	return out, nil
}

func (f *fakeCertStore) ListAllCertifications(_ context.Context) ([]*domain.CertificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CertificationRequest
	for _, cert := range f.certs {
		out = append(out, copyCert(cert))
	}
	return out, nil
}

func (f *fakeCertStore) ListCertificationsByReview(_ context.Context, status domain.CertReviewStatus) ([]*domain.CertificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CertificationRequest
	for _, cert := range f.certs {
		if cert.ReviewStatus == status {
			out = append(out, copyCert(cert))
		}
	}
	return out, nil
}

func (f *fakeCertStore) AttachSession(_ context.Context, certID uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.certs[certID]
	if !ok {
		return repository.ErrCertificationNotFound
	}
	if cert.GatewaySessionID != "" {
		return repository.ErrSessionAttached
	}
	cert.GatewaySessionID = sessionID
	return nil
}

func (f *fakeCertStore) UpdatePaymentStatusFrom(_ context.Context, certID uuid.UUID, from, to domain.CertPaymentStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.certs[certID]
	if !ok || cert.PaymentStatus != from {
		return 0, nil
	}
	cert.PaymentStatus = to
	return 1, nil
}

func (f *fakeCertStore) UpdateReviewStatus(_ context.Context, certID uuid.UUID, status domain.CertReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.certs[certID]
	if !ok {
		return repository.ErrCertificationNotFound
	}
	cert.ReviewStatus = status
	return nil
}

// fakeGateway stubs the external provider. Webhook signature mechanics are
// covered by the gateway package tests; here VerifyEvent just replays what
// the test configures.
type fakeGateway struct {
	session     *gateway.CheckoutSession
	createErr   error
	retrieveErr error

	event     *gateway.Event
	verifyErr error

	lastParams  gateway.SessionParams
	createCalls int
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, params gateway.SessionParams) (*gateway.CheckoutSession, error) {
	f.createCalls++
	f.lastParams = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakeGateway) RetrieveSession(_ context.Context, _ string) (*gateway.CheckoutSession, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.session, nil
}

func (f *fakeGateway) VerifyEvent(_ []byte, _ string) (*gateway.Event, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.CheckoutEvent
	err    error
}

func (r *recordingPublisher) PublishCheckoutEvent(event messaging.CheckoutEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) types() []messaging.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]messaging.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
