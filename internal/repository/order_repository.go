package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ah-malik/SkyGloss-backend/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrSessionAttached means the order already carries a gateway session
	// handle. An order is never re-sessioned.
	ErrSessionAttached = errors.New("order already has a gateway session")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// dbOrderItem is the persisted shape of a line item. Money is stored in
// decimal major units; Cents exists only inside the process.
type dbOrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

func toDBItems(items []domain.OrderItem) []dbOrderItem {
	out := make([]dbOrderItem, len(items))
	for i, item := range items {
		out[i] = dbOrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice.Dollars(),
			Image:     item.Image,
		}
	}
	return out
}

func fromDBItems(items []dbOrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, len(items))
	for i, item := range items {
		out[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: domain.CentsFromDollars(item.Price),
			Image:     item.Image,
		}
	}
	return out
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(toDBItems(order.Items))
	if err != nil {
		return fmt.Errorf("items serialization error: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("shipping address serialization error: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, order_number, owner_id, items, total_amount, status,
			shipping_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	// The order number is timestamp+random; a collision inside one
	// millisecond is possible, so retry once with a fresh number.
	for attempt := 0; attempt < 2; attempt++ {
		_, err = r.db.ExecContext(
			ctx, query,
			order.ID,
			order.OrderNumber,
			order.OwnerID,
			itemsJSON,
			order.TotalAmount.Dollars(),
			order.Status,
			addressJSON,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err == nil {
			return nil
		}
		if isUniqueViolation(err) && attempt == 0 {
			order.OrderNumber = domain.NewOrderNumber()
			continue
		}
		return fmt.Errorf("order creation error: %w", err)
	}

	return fmt.Errorf("order creation error: %w", err)
}

// AttachSession records the gateway session handle and the final chargeable
// total exactly once. The IS NULL guard makes re-sessioning impossible even
// under concurrent checkout calls.
func (r *OrderRepository) AttachSession(ctx context.Context, orderID uuid.UUID, sessionID string, finalTotal domain.Cents) error {
	query := `
		UPDATE orders
		SET gateway_session_id = $2, total_amount = $3, updated_at = NOW()
		WHERE id = $1 AND gateway_session_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, orderID, sessionID, finalTotal.Dollars())
	if err != nil {
		return fmt.Errorf("session attach error: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, getErr := r.GetOrderByID(ctx, orderID); getErr != nil {
			return getErr
		}
		return ErrSessionAttached
	}
	return nil
}

// UpdateStatusFrom performs the atomic conditional status write both
// confirmation channels rely on. Zero rows affected means the expected
// current status no longer holds: the caller re-reads and decides.
func (r *OrderRepository) UpdateStatusFrom(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) (int64, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, orderID, from, to)
	if err != nil {
		return 0, fmt.Errorf("order status update error: %w", err)
	}
	return result.RowsAffected()
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, `WHERE id = $1`, orderID)
}

func (r *OrderRepository) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.getOrder(ctx, `WHERE gateway_session_id = $1`, sessionID)
}

const orderColumns = `
	SELECT id, order_number, owner_id, items, total_amount, status,
		   gateway_session_id, shipping_address, created_at, updated_at
	FROM orders
`

func (r *OrderRepository) getOrder(ctx context.Context, where string, arg interface{}) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, orderColumns+where, arg)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order retrieval error: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) ListOrdersByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Order, error) {
	return r.listOrders(ctx, orderColumns+`WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *OrderRepository) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return r.listOrders(ctx, orderColumns+`ORDER BY created_at DESC`)
}

func (r *OrderRepository) listOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders retrieval error: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order scan error: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// DeleteStalePendingOrders reaps sessionless PENDING orders older than the
// cutoff. Nothing in the core schedules this; it exists for operators.
func (r *OrderRepository) DeleteStalePendingOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM orders
		WHERE status = $1 AND gateway_session_id IS NULL AND created_at < $2
	`

	result, err := r.db.ExecContext(ctx, query, domain.OrderStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("stale order cleanup error: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var itemsJSON, addressJSON []byte
	var totalDollars float64
	var sessionID sql.NullString

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.OwnerID,
		&itemsJSON,
		&totalDollars,
		&order.Status,
		&sessionID,
		&addressJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var items []dbOrderItem
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, fmt.Errorf("items deserialization error: %w", err)
	}
	order.Items = fromDBItems(items)

	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("shipping address deserialization error: %w", err)
	}

	order.TotalAmount = domain.CentsFromDollars(totalDollars)
	if sessionID.Valid {
		order.GatewaySessionID = sessionID.String
	}
	return order, nil
}
