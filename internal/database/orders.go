package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, items, total, status, customer_name, table_number, payment_status, payment_method, stripe_session_id, version, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Items,
		&i.Total,
		&i.Status,
		&i.CustomerName,
		&i.TableNumber,
		&i.PaymentStatus,
		&i.PaymentMethod,
		&i.StripeSessionID,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (id, items, total, status, customer_name, table_number, payment_status, payment_method, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ID            string             `json:"id"`
	Items         []byte             `json:"items"`
	Total         pgtype.Numeric     `json:"total"`
	Status        string             `json:"status"`
	CustomerName  string             `json:"customer_name"`
	TableNumber   pgtype.Text        `json:"table_number"`
	PaymentStatus string             `json:"payment_status"`
	PaymentMethod pgtype.Text        `json:"payment_method"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ID,
		arg.Items,
		arg.Total,
		arg.Status,
		arg.CustomerName,
		arg.TableNumber,
		arg.PaymentStatus,
		arg.PaymentMethod,
		arg.CreatedAt,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderByStripeSession = `-- name: GetOrderByStripeSession :one
SELECT ` + orderColumns + ` FROM orders
WHERE stripe_session_id = $1`

func (q *Queries) GetOrderByStripeSession(ctx context.Context, stripeSessionID string) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderByStripeSession, stripeSessionID)
	return scanOrder(row)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE (coalesce(cardinality($1::text[]), 0) = 0 OR status = ANY($1::text[]))
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
  AND ($6::text IS NULL
       OR strpos(lower(id), lower($6)) > 0
       OR strpos(lower(customer_name), lower($6)) > 0)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`

type ListOrdersParams struct {
	Statuses  []string           `json:"statuses"`
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
	Limit     int32              `json:"limit"`
	Offset    int32              `json:"offset"`
	Search    pgtype.Text        `json:"search"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Statuses,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
		arg.Search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND status = $3 AND version = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	ExpectedStatus  string `json:"expected_status"`
	ExpectedVersion int64  `json:"expected_version"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.Status,
		arg.ExpectedStatus,
		arg.ExpectedVersion,
	)
	return scanOrder(row)
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE orders
SET payment_status = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND payment_status = $3
RETURNING ` + orderColumns

type UpdatePaymentStatusParams struct {
	ID                    string `json:"id"`
	PaymentStatus         string `json:"payment_status"`
	ExpectedPaymentStatus string `json:"expected_payment_status"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updatePaymentStatus,
		arg.ID,
		arg.PaymentStatus,
		arg.ExpectedPaymentStatus,
	)
	return scanOrder(row)
}

const markOrderPaid = `-- name: MarkOrderPaid :one
UPDATE orders
SET payment_status = 'paid', version = version + 1, updated_at = now()
WHERE id = $1 AND payment_status IN ('pending', 'failed', 'counter_pending')
RETURNING ` + orderColumns

// MarkOrderPaid returns pgx.ErrNoRows when the order is missing or already
// past the point where it can become paid.
func (q *Queries) MarkOrderPaid(ctx context.Context, id string) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderPaid, id)
	return scanOrder(row)
}

const setStripeSession = `-- name: SetStripeSession :one
UPDATE orders
SET stripe_session_id = $2, version = version + 1, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type SetStripeSessionParams struct {
	ID              string      `json:"id"`
	StripeSessionID pgtype.Text `json:"stripe_session_id"`
}

func (q *Queries) SetStripeSession(ctx context.Context, arg SetStripeSessionParams) (Order, error) {
	row := q.db.QueryRow(ctx, setStripeSession, arg.ID, arg.StripeSessionID)
	return scanOrder(row)
}

const deleteAllOrders = `-- name: DeleteAllOrders :execrows
DELETE FROM orders`

func (q *Queries) DeleteAllOrders(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAllOrders)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
