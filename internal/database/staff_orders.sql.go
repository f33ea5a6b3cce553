package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const staffOrderColumns = `id, order_id, staff_id, is_brigadier, is_accept, in_place, created_at`

func scanStaffOrder(row pgx.Row) (StaffOrder, error) {
	var i StaffOrder
	err := row.Scan(&i.ID, &i.OrderID, &i.StaffID, &i.IsBrigadier, &i.IsAccept, &i.InPlace, &i.CreatedAt)
	return i, err
}

const createStaffOrder = `INSERT INTO staff_orders (order_id, staff_id, is_brigadier)
VALUES ($1, $2, $3)
RETURNING ` + staffOrderColumns

type CreateStaffOrderParams struct {
	OrderID     int64 `json:"order_id"`
	StaffID     int64 `json:"staff_id"`
	IsBrigadier bool  `json:"is_brigadier"`
}

func (q *Queries) CreateStaffOrder(ctx context.Context, arg CreateStaffOrderParams) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, createStaffOrder, arg.OrderID, arg.StaffID, arg.IsBrigadier))
}

const getStaffOrder = `SELECT ` + staffOrderColumns + ` FROM staff_orders WHERE id = $1`

func (q *Queries) GetStaffOrder(ctx context.Context, id int64) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, getStaffOrder, id))
}

const getStaffOrderByOrderAndStaff = `SELECT ` + staffOrderColumns + ` FROM staff_orders
WHERE order_id = $1 AND staff_id = $2`

func (q *Queries) GetStaffOrderByOrderAndStaff(ctx context.Context, orderID, staffID int64) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, getStaffOrderByOrderAndStaff, orderID, staffID))
}

const listStaffOrdersByOrder = `SELECT ` + staffOrderColumns + ` FROM staff_orders
WHERE order_id = $1
ORDER BY is_brigadier DESC, id`

func (q *Queries) ListStaffOrdersByOrder(ctx context.Context, orderID int64) ([]StaffOrder, error) {
	rows, err := q.db.Query(ctx, listStaffOrdersByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaffOrder)
}

const listStaffOrdersByStaff = `SELECT ` + staffOrderColumns + ` FROM staff_orders
WHERE staff_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListStaffOrdersByStaff(ctx context.Context, staffID int64) ([]StaffOrder, error) {
	rows, err := q.db.Query(ctx, listStaffOrdersByStaff, staffID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaffOrder)
}

const deleteStaffOrder = `DELETE FROM staff_orders WHERE id = $1 RETURNING ` + staffOrderColumns

func (q *Queries) DeleteStaffOrder(ctx context.Context, id int64) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, deleteStaffOrder, id))
}

const clearBrigadier = `UPDATE staff_orders SET is_brigadier = false WHERE order_id = $1 AND is_brigadier`

func (q *Queries) ClearBrigadier(ctx context.Context, orderID int64) error {
	_, err := q.db.Exec(ctx, clearBrigadier, orderID)
	return err
}

const setBrigadier = `UPDATE staff_orders SET is_brigadier = true WHERE id = $1 RETURNING ` + staffOrderColumns

func (q *Queries) SetBrigadier(ctx context.Context, id int64) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, setBrigadier, id))
}

const acceptStaffOrder = `UPDATE staff_orders SET is_accept = true
WHERE order_id = $1 AND staff_id = $2
RETURNING ` + staffOrderColumns

func (q *Queries) AcceptStaffOrder(ctx context.Context, orderID, staffID int64) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, acceptStaffOrder, orderID, staffID))
}

const markInPlace = `UPDATE staff_orders SET in_place = now()
WHERE order_id = $1 AND staff_id = $2
RETURNING ` + staffOrderColumns

func (q *Queries) MarkInPlace(ctx context.Context, orderID, staffID int64) (StaffOrder, error) {
	return scanStaffOrder(q.db.QueryRow(ctx, markInPlace, orderID, staffID))
}
