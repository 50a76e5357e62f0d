package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ah-malik/SkyGloss-backend/internal/auth"
	"github.com/ah-malik/SkyGloss-backend/internal/domain"
	"github.com/ah-malik/SkyGloss-backend/internal/gateway"
	"github.com/ah-malik/SkyGloss-backend/internal/repository"
	"github.com/ah-malik/SkyGloss-backend/internal/service"
)

const testSecret = "handler-test-secret"

type fixture struct {
	app    *fiber.App
	orders *stubOrderStore
	certs  *stubCertStore
	gw     *stubGateway
}

func newFixture() *fixture {
	orders := &stubOrderStore{byID: map[uuid.UUID]*domain.Order{}}
	certs := &stubCertStore{byID: map[uuid.UUID]*domain.CertificationRequest{}}
	gw := &stubGateway{
		session: &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"},
	}

	pricing := service.PricingConfig{
		ShippingFeeCents:        1500,
		TaxRateBps:              800,
		CertificationFeeCents:   2500,
		FrontendURL:             "https://shop.example",
		ShopRedirectPath:        "/dashboard/shop",
		DistributorRedirectPath: "/dashboard/distributor",
	}

	app := fiber.New()
	SetupRoutes(app,
		auth.NewMiddleware(testSecret),
		NewOrderHandler(service.NewCheckoutService(orders, gw, nil, pricing)),
		NewCertificationHandler(service.NewCertificationService(certs, gw, nil, pricing)),
	)
	return &fixture{app: app, orders: orders, certs: certs, gw: gw}
}

func signToken(t *testing.T, subject, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

var checkoutBody = map[string]interface{}{
	"items": []map[string]interface{}{
		{"product": "p1", "name": "Gloss Kit", "size": "M", "quantity": 1, "price": 25.00},
	},
	"shippingAddress": map[string]interface{}{
		"email":     "buyer@example.com",
		"firstName": "Amal",
		"lastName":  "K",
		"address":   "1 Main St",
		"city":      "Austin",
		"state":     "TX",
		"zipCode":   "78701",
		"country":   "US",
	},
}

func TestHealthIsUnauthenticated(t *testing.T) {
	f := newFixture()
	resp := doJSON(t, f.app, fiber.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCheckoutSessionRequiresToken(t *testing.T) {
	f := newFixture()
	resp := doJSON(t, f.app, fiber.MethodPost, "/api/v1/orders/checkout-session", "", checkoutBody)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutSessionHappyPath(t *testing.T) {
	f := newFixture()
	token := signToken(t, uuid.New().String(), auth.RoleShop)

	resp := doJSON(t, f.app, fiber.MethodPost, "/api/v1/orders/checkout-session", token, checkoutBody)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "https://pay.example/cs_test_1", data["redirect_url"])
	assert.NotEmpty(t, data["order_id"])
}

func TestCheckoutSessionEmptyCart(t *testing.T) {
	f := newFixture()
	token := signToken(t, uuid.New().String(), auth.RoleShop)

	resp := doJSON(t, f.app, fiber.MethodPost, "/api/v1/orders/checkout-session", token, map[string]interface{}{
		"items":           []interface{}{},
		"shippingAddress": checkoutBody["shippingAddress"],
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminListingIsRoleGated(t *testing.T) {
	f := newFixture()

	shopToken := signToken(t, uuid.New().String(), auth.RoleShop)
	resp := doJSON(t, f.app, fiber.MethodGet, "/api/v1/orders/admin/all", shopToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	adminToken := signToken(t, uuid.New().String(), auth.RoleAdmin)
	resp = doJSON(t, f.app, fiber.MethodGet, "/api/v1/orders/admin/all", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetOrderHidesOtherOwners(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	order := domain.NewOrder(owner, []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: 2500}}, domain.ShippingAddress{})
	f.orders.byID[order.ID] = order

	strangerToken := signToken(t, uuid.New().String(), auth.RoleShop)
	resp := doJSON(t, f.app, fiber.MethodGet, "/api/v1/orders/"+order.ID.String(), strangerToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	ownerToken := signToken(t, owner.String(), auth.RoleShop)
	resp = doJSON(t, f.app, fiber.MethodGet, "/api/v1/orders/"+order.ID.String(), ownerToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetStatusMapsTransitionRejection(t *testing.T) {
	f := newFixture()
	order := domain.NewOrder(uuid.New(), []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: 2500}}, domain.ShippingAddress{})
	order.Status = domain.OrderStatusDelivered
	f.orders.byID[order.ID] = order

	adminToken := signToken(t, uuid.New().String(), auth.RoleAdmin)

	resp := doJSON(t, f.app, fiber.MethodPost, "/api/v1/orders/admin/"+order.ID.String()+"/status", adminToken,
		map[string]string{"status": "PENDING"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = doJSON(t, f.app, fiber.MethodPost, "/api/v1/orders/admin/"+order.ID.String()+"/status", adminToken,
		map[string]string{"status": "NONSENSE"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture()
	f.gw.verifyErr = gateway.ErrInvalidSignature

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/orders/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookAppliesPayment(t *testing.T) {
	f := newFixture()
	order := domain.NewOrder(uuid.New(), []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: 2500}}, domain.ShippingAddress{})
	order.GatewaySessionID = "cs_test_1"
	f.orders.byID[order.ID] = order

	f.gw.event = &gateway.Event{
		Type:    gateway.EventCheckoutCompleted,
		Session: gateway.CheckoutSession{ID: "cs_test_1", ClientReferenceID: order.ID.String()},
	}

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/orders/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=ok")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OrderStatusPaid, f.orders.byID[order.ID].Status)
}

func TestCertificationCheckoutRequiresDistributor(t *testing.T) {
	f := newFixture()
	body := map[string]string{
		"country":       "US",
		"requesterName": "Jane",
		"shopName":      "Gloss Corner",
		"shopEmail":     "shop@example.com",
	}

	shopToken := signToken(t, uuid.New().String(), auth.RoleShop)
	resp := doJSON(t, f.app, fiber.MethodPost, "/api/v1/certifications/checkout-session", shopToken, body)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	distToken := signToken(t, uuid.New().String(), auth.RoleDistributor)
	resp = doJSON(t, f.app, fiber.MethodPost, "/api/v1/certifications/checkout-session", distToken, body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestReviewEndpoint(t *testing.T) {
	f := newFixture()
	cert := domain.NewCertificationRequest(uuid.New(), 2500, "US", "Jane", "Gloss Corner", "shop@example.com", "", "")
	f.certs.byID[cert.ID] = cert

	adminToken := signToken(t, uuid.New().String(), auth.RoleAdmin)
	resp := doJSON(t, f.app, fiber.MethodPatch, "/api/v1/certifications/admin/"+cert.ID.String()+"/status", adminToken,
		map[string]string{"status": "APPROVED"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "APPROVED", data["review_status"])
	assert.Equal(t, "PENDING", data["payment_status"])
}

// stubOrderStore is just enough persistence for routing tests. Race
// behavior of conditional updates is covered in the service tests.
type stubOrderStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Order
}

func (s *stubOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[order.ID] = order
	return nil
}

func (s *stubOrderStore) GetOrderByID(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderStore) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.byID {
		if order.GatewaySessionID == sessionID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (s *stubOrderStore) ListOrdersByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Order
	for _, order := range s.byID {
		if order.OwnerID == ownerID {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *stubOrderStore) ListAllOrders(_ context.Context) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Order
	for _, order := range s.byID {
		copied := *order
		out = append(out, &copied)
	}
	return out, nil
}

func (s *stubOrderStore) AttachSession(_ context.Context, orderID uuid.UUID, sessionID string, finalTotal domain.Cents) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[orderID]
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

func (s *stubOrderStore) UpdateStatusFrom(_ context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[orderID]
	if !ok || order.Status != from {
		return 0, nil
	}
	order.Status = to
	return 1, nil
}

type stubCertStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.CertificationRequest
}

func (s *stubCertStore) CreateCertification(_ context.Context, cert *domain.CertificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[cert.ID] = cert
	return nil
}

func (s *stubCertStore) GetCertificationByID(_ context.Context, certID uuid.UUID) (*domain.CertificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certID]
	if !ok {
		return nil, repository.ErrCertificationNotFound
	}
	copied := *cert
	return &copied, nil
}

func (s *stubCertStore) GetCertificationBySessionID(_ context.Context, sessionID string) (*domain.CertificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cert := range s.byID {
		if cert.GatewaySessionID == sessionID {
			copied := *cert
			return &copied, nil
		}
	}
	return nil, repository.ErrCertificationNotFound
}

func (s *stubCertStore) ListCertificationsByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.CertificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.CertificationRequest
	for _, cert := range s.byID {
		if cert.OwnerID == ownerID {
			copied := *cert
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *stubCertStore) ListAllCertifications(_ context.Context) ([]*domain.CertificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.CertificationRequest
	for _, cert := range s.byID {
		copied := *cert
		out = append(out, &copied)
	}
	return out, nil
}

func (s *stubCertStore) ListCertificationsByReview(_ context.Context, status domain.CertReviewStatus) ([]*domain.CertificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.CertificationRequest
	for _, cert := range s.byID {
		if cert.ReviewStatus == status {
			copied := *cert
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *stubCertStore) AttachSession(_ context.Context, certID uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certID]
	if !ok {
		return repository.ErrCertificationNotFound
	}
	cert.GatewaySessionID = sessionID
	return nil
}

func (s *stubCertStore) UpdatePaymentStatusFrom(_ context.Context, certID uuid.UUID, from, to domain.CertPaymentStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certID]
	if !ok || cert.PaymentStatus != from {
		return 0, nil
	}
	cert.PaymentStatus = to
	return 1, nil
}

func (s *stubCertStore) UpdateReviewStatus(_ context.Context, certID uuid.UUID, status domain.CertReviewStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certID]
	if !ok {
		return repository.ErrCertificationNotFound
	}
	cert.ReviewStatus = status
	return nil
}

type stubGateway struct {
	session   *gateway.CheckoutSession
	event     *gateway.Event
	verifyErr error
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ gateway.SessionParams) (*gateway.CheckoutSession, error) {
	return g.session, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, _ string) (*gateway.CheckoutSession, error) {
	return g.session, nil
}

func (g *stubGateway) VerifyEvent(_ []byte, _ string) (*gateway.Event, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.event, nil
}
