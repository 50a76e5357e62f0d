package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ah-malik/SkyGloss-backend/internal/domain"
)

var ErrCertificationNotFound = errors.New("certification request not found")

type CertificationRepository struct {
	db *sql.DB
}

func NewCertificationRepository(db *sql.DB) *CertificationRepository {
	return &CertificationRepository{db: db}
}

func (r *CertificationRepository) CreateCertification(ctx context.Context, cert *domain.CertificationRequest) error {
	query := `
		INSERT INTO certification_requests (
			id, owner_id, country, requester_name, shop_name, shop_email,
			shop_phone, shop_city, amount, payment_status, review_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		cert.ID,
		cert.OwnerID,
		cert.Country,
		cert.RequesterName,
		cert.ShopName,
		cert.ShopEmail,
		cert.ShopPhone,
		cert.ShopCity,
		cert.Amount.Dollars(),
		cert.PaymentStatus,
		cert.ReviewStatus,
		cert.CreatedAt,
		cert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("certification creation error: %w", err)
	}
	return nil
}

func (r *CertificationRepository) AttachSession(ctx context.Context, certID uuid.UUID, sessionID string) error {
	query := `
		UPDATE certification_requests
		SET gateway_session_id = $2, updated_at = NOW()
		WHERE id = $1 AND gateway_session_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, certID, sessionID)
	if err != nil {
		return fmt.Errorf("session attach error: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, getErr := r.GetCertificationByID(ctx, certID); getErr != nil {
			return getErr
		}
		return ErrSessionAttached
	}
	return nil
}

// UpdatePaymentStatusFrom writes only the payment axis. The review axis is
// never mentioned in the statement, so a concurrent admin decision cannot
// be clobbered and vice versa.
func (r *CertificationRepository) UpdatePaymentStatusFrom(ctx context.Context, certID uuid.UUID, from, to domain.CertPaymentStatus) (int64, error) {
	query := `
		UPDATE certification_requests
		SET payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = $2
	`

	result, err := r.db.ExecContext(ctx, query, certID, from, to)
	if err != nil {
		return 0, fmt.Errorf("certification payment status update error: %w", err)
	}
	return result.RowsAffected()
}

// UpdateReviewStatus writes only the review axis.
func (r *CertificationRepository) UpdateReviewStatus(ctx context.Context, certID uuid.UUID, status domain.CertReviewStatus) error {
	query := `
		UPDATE certification_requests
		SET review_status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, certID, status)
	if err != nil {
		return fmt.Errorf("certification review status update error: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCertificationNotFound
	}
	return nil
}

const certColumns = `
	SELECT id, owner_id, country, requester_name, shop_name, shop_email,
		   shop_phone, shop_city, amount, payment_status, review_status,
		   gateway_session_id, created_at, updated_at
	FROM certification_requests
`

func (r *CertificationRepository) GetCertificationByID(ctx context.Context, certID uuid.UUID) (*domain.CertificationRequest, error) {
	return r.getCertification(ctx, `WHERE id = $1`, certID)
}

func (r *CertificationRepository) GetCertificationBySessionID(ctx context.Context, sessionID string) (*domain.CertificationRequest, error) {
	return r.getCertification(ctx, `WHERE gateway_session_id = $1`, sessionID)
}

func (r *CertificationRepository) getCertification(ctx context.Context, where string, arg interface{}) (*domain.CertificationRequest, error) {
	row := r.db.QueryRowContext(ctx, certColumns+where, arg)

	cert, err := scanCertification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCertificationNotFound
		}
		return nil, fmt.Errorf("certification retrieval error: %w", err)
	}
	return cert, nil
}

func (r *CertificationRepository) ListCertificationsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.CertificationRequest, error) {
	return r.listCertifications(ctx, certColumns+`WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *CertificationRepository) ListAllCertifications(ctx context.Context) ([]*domain.CertificationRequest, error) {
	return r.listCertifications(ctx, certColumns+`ORDER BY created_at DESC`)
}

func (r *CertificationRepository) ListCertificationsByReview(ctx context.Context, status domain.CertReviewStatus) ([]*domain.CertificationRequest, error) {
	return r.listCertifications(ctx, certColumns+`WHERE review_status = $1 ORDER BY created_at DESC`, status)
}

func (r *CertificationRepository) listCertifications(ctx context.Context, query string, args ...interface{}) ([]*domain.CertificationRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("certifications retrieval error: %w", err)
	}
	defer rows.Close()

	var certs []*domain.CertificationRequest
	for rows.Next() {
		cert, err := scanCertification(rows)
		if err != nil {
			return nil, fmt.Errorf("certification scan error: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

func scanCertification(row rowScanner) (*domain.CertificationRequest, error) {
	cert := &domain.CertificationRequest{}
	var amountDollars float64
	var sessionID sql.NullString

	err := row.Scan(
		&cert.ID,
		&cert.OwnerID,
		&cert.Country,
		&cert.RequesterName,
		&cert.ShopName,
		&cert.ShopEmail,
		&cert.ShopPhone,
		&cert.ShopCity,
		&amountDollars,
		&cert.PaymentStatus,
		&cert.ReviewStatus,
		&sessionID,
		&cert.CreatedAt,
		&cert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cert.Amount = domain.CentsFromDollars(amountDollars)
	if sessionID.Valid {
		cert.GatewaySessionID = sessionID.String
	}
	return cert, nil
}
