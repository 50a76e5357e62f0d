package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.stripe.com/v1"

// Stripe metadata limits: 50 keys, 500 character values.
const (
	maxMetadataKeys     = 50
	maxMetadataValueLen = 500
)

var secretKeyPattern = regexp.MustCompile(`^sk_(test|live)_[A-Za-z0-9]+`)

// StripeConfig carries everything the client needs up front. Validation
// happens once in NewStripeGateway, not at call sites.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBase       string
	Timeout       time.Duration
}

type StripeGateway struct {
	secretKey     string
	webhookSecret string
	apiBase       string
	httpClient    *http.Client
	tolerance     time.Duration
	now           func() time.Time
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	if !secretKeyPattern.MatchString(cfg.SecretKey) {
		return nil, fmt.Errorf("%w: secret key must look like sk_test_... or sk_live_...", ErrNotConfigured)
	}

	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &StripeGateway{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		apiBase:       strings.TrimRight(apiBase, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		tolerance:     5 * time.Minute,
		now:           time.Now,
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	for i, item := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
		if item.Image != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", item.Image)
		}
		for k, v := range clampMetadata(item.Metadata) {
			form.Set(prefix+"[price_data][product_data][metadata]["+k+"]", v)
		}
	}

	for k, v := range clampMetadata(params.Metadata) {
		form.Set("metadata["+k+"]", v)
	}

	session := &CheckoutSession{}
	if err := g.call(ctx, http.MethodPost, "/checkout/sessions", form, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	session := &CheckoutSession{}
	if err := g.call(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(sessionID), nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (g *StripeGateway) call(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, body)
	if err != nil {
		return fmt.Errorf("gateway request build error: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call error: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway response read error: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway call error: %s", apiErrorMessage(resp.StatusCode, payload))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("gateway response decode error: %w", err)
	}
	return nil
}

func apiErrorMessage(status int, payload []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("unexpected status %d", status)
}

func clampMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	clamped := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if len(clamped) >= maxMetadataKeys {
			break
		}
		if len(v) > maxMetadataValueLen {
			v = v[:maxMetadataValueLen]
		}
		clamped[k] = v
	}
	return clamped
}
