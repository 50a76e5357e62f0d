package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VerifyEvent authenticates a raw webhook delivery and parses it into an
// Event. Every failure path returns before anything is parsed: an
// unauthenticated payload never reaches the state machine.
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret missing", ErrNotConfigured)
	}
	if sigHeader == "" {
		return nil, ErrMissingSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	age := g.now().Sub(time.Unix(timestamp, 0))
	if age > g.tolerance || age < -g.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := computeSignature(g.webhookSecret, timestamp, payload)
	if !anySignatureMatches(signatures, expected) {
		return nil, ErrInvalidSignature
	}

	var raw struct {
		Type string `json:"type"`
		Data struct {
			Object CheckoutSession `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("webhook payload decode error: %w", err)
	}

	return &Event{Type: raw.Type, Session: raw.Data.Object}, nil
}

// parseSignatureHeader splits the "t=<unix>,v1=<hex>[,v1=<hex>...]" header
// format. Multiple v1 entries appear during secret rotation.
func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64 = -1
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	return timestamp, signatures, nil
}

func computeSignature(secret string, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}

func anySignatureMatches(candidates []string, expected []byte) bool {
	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}

// SignPayload builds a valid signature header for a payload. Used by tests
// and local tooling to simulate gateway deliveries.
func SignPayload(secret string, timestamp time.Time, payload []byte) string {
	sig := computeSignature(secret, timestamp.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), hex.EncodeToString(sig))
}
