package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const serviceOrderColumns = `id, order_id, service_id, extra_service_id, amount, rate, total`

func scanServiceOrder(row pgx.Row) (ServiceOrder, error) {
	var i ServiceOrder
	err := row.Scan(&i.ID, &i.OrderID, &i.ServiceID, &i.ExtraServiceID, &i.Amount, &i.Rate, &i.Total)
	return i, err
}

const createServiceOrder = `INSERT INTO service_orders (order_id, service_id, extra_service_id, amount, rate, total)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + serviceOrderColumns

type CreateServiceOrderParams struct {
	OrderID        int64           `json:"order_id"`
	ServiceID      pgtype.Int8     `json:"service_id"`
	ExtraServiceID pgtype.Int8     `json:"extra_service_id"`
	Amount         int32           `json:"amount"`
	Rate           decimal.Decimal `json:"rate"`
	Total          decimal.Decimal `json:"total"`
}

func (q *Queries) CreateServiceOrder(ctx context.Context, arg CreateServiceOrderParams) (ServiceOrder, error) {
	row := q.db.QueryRow(ctx, createServiceOrder,
		arg.OrderID,
		arg.ServiceID,
		arg.ExtraServiceID,
		arg.Amount,
		arg.Rate,
		arg.Total,
	)
	return scanServiceOrder(row)
}

const getServiceOrder = `SELECT ` + serviceOrderColumns + ` FROM service_orders WHERE id = $1 AND order_id = $2`

func (q *Queries) GetServiceOrder(ctx context.Context, id, orderID int64) (ServiceOrder, error) {
	return scanServiceOrder(q.db.QueryRow(ctx, getServiceOrder, id, orderID))
}

const listServiceOrdersByOrder = `SELECT ` + serviceOrderColumns + ` FROM service_orders
WHERE order_id = $1
ORDER BY id`

func (q *Queries) ListServiceOrdersByOrder(ctx context.Context, orderID int64) ([]ServiceOrder, error) {
	rows, err := q.db.Query(ctx, listServiceOrdersByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanServiceOrder)
}

const updateServiceOrder = `UPDATE service_orders SET amount = $3, rate = $4, total = $5
WHERE id = $1 AND order_id = $2
RETURNING ` + serviceOrderColumns

type UpdateServiceOrderParams struct {
	ID      int64           `json:"id"`
	OrderID int64           `json:"order_id"`
	Amount  int32           `json:"amount"`
	Rate    decimal.Decimal `json:"rate"`
	Total   decimal.Decimal `json:"total"`
}

func (q *Queries) UpdateServiceOrder(ctx context.Context, arg UpdateServiceOrderParams) (ServiceOrder, error) {
	return scanServiceOrder(q.db.QueryRow(ctx, updateServiceOrder, arg.ID, arg.OrderID, arg.Amount, arg.Rate, arg.Total))
}

const deleteServiceOrder = `DELETE FROM service_orders WHERE id = $1 AND order_id = $2 RETURNING id`

func (q *Queries) DeleteServiceOrder(ctx context.Context, id, orderID int64) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, deleteServiceOrder, id, orderID).Scan(&deleted)
	return deleted, err
}
