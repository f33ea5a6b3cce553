package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, status, work_start, cleaning_time, work_end, work_started_at, work_finished_at,
	client_id, address, object_type_id, manager_id, payment_type, description, review,
	cleaners_part, total_cost, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.WorkStart,
		&i.CleaningTime,
		&i.WorkEnd,
		&i.WorkStartedAt,
		&i.WorkFinishedAt,
		&i.ClientID,
		&i.Address,
		&i.ObjectTypeID,
		&i.ManagerID,
		&i.PaymentType,
		&i.Description,
		&i.Review,
		&i.CleanersPart,
		&i.TotalCost,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `INSERT INTO orders (work_start, cleaning_time, work_end, client_id, address, object_type_id,
	manager_id, payment_type, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	WorkStart    time.Time   `json:"work_start"`
	CleaningTime int32       `json:"cleaning_time"`
	WorkEnd      time.Time   `json:"work_end"`
	ClientID     int64       `json:"client_id"`
	Address      string      `json:"address"`
	ObjectTypeID pgtype.Int8 `json:"object_type_id"`
	ManagerID    int64       `json:"manager_id"`
	PaymentType  string      `json:"payment_type"`
	Description  pgtype.Text `json:"description"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.WorkStart,
		arg.CleaningTime,
		arg.WorkEnd,
		arg.ClientID,
		arg.Address,
		arg.ObjectTypeID,
		arg.ManagerID,
		arg.PaymentType,
		arg.Description,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::bigint IS NULL OR manager_id = $2)
  AND ($3::timestamptz IS NULL OR work_start >= $3)
  AND ($4::timestamptz IS NULL OR work_start < $4)
ORDER BY work_start DESC
LIMIT $5 OFFSET $6`

type ListOrdersParams struct {
	Status    pgtype.Text        `json:"status"`
	ManagerID pgtype.Int8        `json:"manager_id"`
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
	Limit     int32              `json:"limit"`
	Offset    int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.ManagerID,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrder)
}

// The status guards below make every transition a no-op on terminal orders;
// callers treat pgx.ErrNoRows as "order closed or missing".

const cancelOrder = `UPDATE orders SET status = 'canceled', updated_at = now()
WHERE id = $1 AND status NOT IN ('finished', 'canceled')
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id))
}

const finishOrder = `UPDATE orders SET status = 'finished', total_cost = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ('finished', 'canceled')
RETURNING ` + orderColumns

func (q *Queries) FinishOrder(ctx context.Context, id int64, totalCost decimal.Decimal) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, finishOrder, id, totalCost))
}

const startOrderWork = `UPDATE orders SET status = 'in_progress', work_started_at = now(), updated_at = now()
WHERE id = $1 AND status = 'new'
RETURNING ` + orderColumns

func (q *Queries) StartOrderWork(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, startOrderWork, id))
}

const endOrderWork = `UPDATE orders SET work_finished_at = now(), updated_at = now()
WHERE id = $1 AND status = 'in_progress' AND work_finished_at IS NULL
RETURNING ` + orderColumns

func (q *Queries) EndOrderWork(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, endOrderWork, id))
}

const setCleanersPart = `UPDATE orders SET cleaners_part = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ('finished', 'canceled')
RETURNING ` + orderColumns

func (q *Queries) SetCleanersPart(ctx context.Context, id int64, amount decimal.Decimal) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setCleanersPart, id, amount))
}

const sumServiceOrders = `SELECT COALESCE(SUM(total), 0)::numeric FROM service_orders WHERE order_id = $1`

func (q *Queries) SumServiceOrders(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRow(ctx, sumServiceOrders, orderID).Scan(&total)
	return total, err
}
