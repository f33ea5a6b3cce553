package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const foremanReportColumns = `id, staff_order_id, expenses, start_at, end_at, created_at`

func scanForemanReport(row pgx.Row) (ForemanReport, error) {
	var i ForemanReport
	err := row.Scan(&i.ID, &i.StaffOrderID, &i.Expenses, &i.StartAt, &i.EndAt, &i.CreatedAt)
	return i, err
}

const createForemanReport = `INSERT INTO foreman_reports (staff_order_id, expenses, start_at, end_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + foremanReportColumns

type CreateForemanReportParams struct {
	StaffOrderID int64               `json:"staff_order_id"`
	Expenses     decimal.NullDecimal `json:"expenses"`
	StartAt      time.Time           `json:"start_at"`
	EndAt        time.Time           `json:"end_at"`
}

func (q *Queries) CreateForemanReport(ctx context.Context, arg CreateForemanReportParams) (ForemanReport, error) {
	return scanForemanReport(q.db.QueryRow(ctx, createForemanReport, arg.StaffOrderID, arg.Expenses, arg.StartAt, arg.EndAt))
}

const getForemanReportByOrder = `SELECT fr.id, fr.staff_order_id, fr.expenses, fr.start_at, fr.end_at, fr.created_at
FROM foreman_reports fr
JOIN staff_orders so ON so.id = fr.staff_order_id
WHERE so.order_id = $1`

func (q *Queries) GetForemanReportByOrder(ctx context.Context, orderID int64) (ForemanReport, error) {
	return scanForemanReport(q.db.QueryRow(ctx, getForemanReportByOrder, orderID))
}

const foremanPhotoColumns = `id, staff_order_id, image_path, is_after, created_at`

func scanForemanPhoto(row pgx.Row) (ForemanPhoto, error) {
	var i ForemanPhoto
	err := row.Scan(&i.ID, &i.StaffOrderID, &i.ImagePath, &i.IsAfter, &i.CreatedAt)
	return i, err
}

const createForemanPhoto = `INSERT INTO foreman_photos (staff_order_id, image_path, is_after)
VALUES ($1, $2, $3)
RETURNING ` + foremanPhotoColumns

func (q *Queries) CreateForemanPhoto(ctx context.Context, staffOrderID int64, imagePath string, isAfter bool) (ForemanPhoto, error) {
	return scanForemanPhoto(q.db.QueryRow(ctx, createForemanPhoto, staffOrderID, imagePath, isAfter))
}

const listForemanPhotosByOrder = `SELECT fp.id, fp.staff_order_id, fp.image_path, fp.is_after, fp.created_at
FROM foreman_photos fp
JOIN staff_orders so ON so.id = fp.staff_order_id
WHERE so.order_id = $1
ORDER BY fp.is_after, fp.created_at`

func (q *Queries) ListForemanPhotosByOrder(ctx context.Context, orderID int64) ([]ForemanPhoto, error) {
	rows, err := q.db.Query(ctx, listForemanPhotosByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanForemanPhoto)
}

const foremanOrderUpdateColumns = `id, order_id, staff_id, service_id, extra_service_id, amount, created_at`

func scanForemanOrderUpdate(row pgx.Row) (ForemanOrderUpdate, error) {
	var i ForemanOrderUpdate
	err := row.Scan(&i.ID, &i.OrderID, &i.StaffID, &i.ServiceID, &i.ExtraServiceID, &i.Amount, &i.CreatedAt)
	return i, err
}

const createForemanOrderUpdate = `INSERT INTO foreman_order_updates (order_id, staff_id, service_id, extra_service_id, amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + foremanOrderUpdateColumns

type CreateForemanOrderUpdateParams struct {
	OrderID        int64       `json:"order_id"`
	StaffID        int64       `json:"staff_id"`
	ServiceID      pgtype.Int8 `json:"service_id"`
	ExtraServiceID pgtype.Int8 `json:"extra_service_id"`
	Amount         int32       `json:"amount"`
}

func (q *Queries) CreateForemanOrderUpdate(ctx context.Context, arg CreateForemanOrderUpdateParams) (ForemanOrderUpdate, error) {
	row := q.db.QueryRow(ctx, createForemanOrderUpdate,
		arg.OrderID,
		arg.StaffID,
		arg.ServiceID,
		arg.ExtraServiceID,
		arg.Amount,
	)
	return scanForemanOrderUpdate(row)
}

const listForemanOrderUpdatesByOrder = `SELECT ` + foremanOrderUpdateColumns + ` FROM foreman_order_updates
WHERE order_id = $1
ORDER BY created_at`

func (q *Queries) ListForemanOrderUpdatesByOrder(ctx context.Context, orderID int64) ([]ForemanOrderUpdate, error) {
	rows, err := q.db.Query(ctx, listForemanOrderUpdatesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanForemanOrderUpdate)
}
