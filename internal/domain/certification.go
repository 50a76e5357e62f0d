package domain

import (
	"time"

	"github.com/google/uuid"
)

// A certification request carries two independent state axes: the payment
// axis driven by the gateway and the review axis driven by an admin
// decision. Writes to one axis must never touch the other.

type CertPaymentStatus string

const (
	CertPaymentPending CertPaymentStatus = "PENDING"
	CertPaymentPaid    CertPaymentStatus = "PAID"
	CertPaymentFailed  CertPaymentStatus = "FAILED"
)

type CertReviewStatus string

const (
	CertReviewPending  CertReviewStatus = "PENDING"
	CertReviewApproved CertReviewStatus = "APPROVED"
	CertReviewRejected CertReviewStatus = "REJECTED"
)

func ValidCertReviewStatus(s CertReviewStatus) bool {
	switch s {
	case CertReviewPending, CertReviewApproved, CertReviewRejected:
		return true
	}
	return false
}

// certPaymentTransitions mirrors the payment axis of the order state
// machine: PENDING is the only non-terminal state.
var certPaymentTransitions = map[CertPaymentStatus][]CertPaymentStatus{
	CertPaymentPending: {CertPaymentPaid, CertPaymentFailed},
}

// TransitionCertPayment is the payment-axis counterpart of Transition, with
// the same idempotent no-op contract.
func TransitionCertPayment(from, to CertPaymentStatus) (bool, error) {
	if from == to {
		return false, nil
	}
	for _, allowed := range certPaymentTransitions[from] {
		if allowed == to {
			return true, nil
		}
	}
	return false, ErrTransitionRejected
}

type CertificationRequest struct {
	ID               uuid.UUID         `json:"id"`
	OwnerID          uuid.UUID         `json:"owner_id"`
	Country          string            `json:"country"`
	RequesterName    string            `json:"requester_name"`
	ShopName         string            `json:"shop_name"`
	ShopEmail        string            `json:"shop_email"`
	ShopPhone        string            `json:"shop_phone"`
	ShopCity         string            `json:"shop_city"`
	Amount           Cents             `json:"amount"`
	PaymentStatus    CertPaymentStatus `json:"payment_status"`
	ReviewStatus     CertReviewStatus  `json:"review_status"`
	GatewaySessionID string            `json:"gateway_session_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func NewCertificationRequest(ownerID uuid.UUID, amount Cents, country, requesterName, shopName, shopEmail, shopPhone, shopCity string) *CertificationRequest {
	now := time.Now()
	return &CertificationRequest{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Country:       country,
		RequesterName: requesterName,
		ShopName:      shopName,
		ShopEmail:     shopEmail,
		ShopPhone:     shopPhone,
		ShopCity:      shopCity,
		Amount:        amount,
		PaymentStatus: CertPaymentPending,
		ReviewStatus:  CertReviewPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
