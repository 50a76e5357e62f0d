package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTransitionCertPayment(t *testing.T) {
	changed, err := TransitionCertPayment(CertPaymentPending, CertPaymentPaid)
	assert.NoError(t, err)
	assert.True(t, changed)

	changed, err = TransitionCertPayment(CertPaymentPaid, CertPaymentPaid)
	assert.NoError(t, err)
	assert.False(t, changed)

	_, err = TransitionCertPayment(CertPaymentFailed, CertPaymentPaid)
	assert.ErrorIs(t, err, ErrTransitionRejected)
}

func TestNewCertificationRequest_BothAxesStartPending(t *testing.T) {
	req := NewCertificationRequest(uuid.New(), 2500, "US", "Jane Doe", "Gloss Corner", "shop@example.com", "555-0101", "Austin")

	assert.Equal(t, CertPaymentPending, req.PaymentStatus)
	assert.Equal(t, CertReviewPending, req.ReviewStatus)
	assert.Equal(t, Cents(2500), req.Amount)
}
