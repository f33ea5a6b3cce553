package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const managerReportColumns = `id, order_id, cleaner_id, salary, bonus, bonus_description, forfeit,
	forfeit_description, created_at`

func scanManagerReport(row pgx.Row) (ManagerReport, error) {
	var i ManagerReport
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.CleanerID,
		&i.Salary,
		&i.Bonus,
		&i.BonusDescription,
		&i.Forfeit,
		&i.ForfeitDescription,
		&i.CreatedAt,
	)
	return i, err
}

const createManagerReport = `INSERT INTO manager_reports (order_id, cleaner_id, salary, bonus, bonus_description,
	forfeit, forfeit_description)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + managerReportColumns

type CreateManagerReportParams struct {
	OrderID            int64           `json:"order_id"`
	CleanerID          int64           `json:"cleaner_id"`
	Salary             decimal.Decimal `json:"salary"`
	Bonus              decimal.Decimal `json:"bonus"`
	BonusDescription   pgtype.Text     `json:"bonus_description"`
	Forfeit            decimal.Decimal `json:"forfeit"`
	ForfeitDescription pgtype.Text     `json:"forfeit_description"`
}

func (q *Queries) CreateManagerReport(ctx context.Context, arg CreateManagerReportParams) (ManagerReport, error) {
	row := q.db.QueryRow(ctx, createManagerReport,
		arg.OrderID,
		arg.CleanerID,
		arg.Salary,
		arg.Bonus,
		arg.BonusDescription,
		arg.Forfeit,
		arg.ForfeitDescription,
	)
	return scanManagerReport(row)
}

const countManagerReportsByOrder = `SELECT count(*) FROM manager_reports WHERE order_id = $1`

func (q *Queries) CountManagerReportsByOrder(ctx context.Context, orderID int64) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countManagerReportsByOrder, orderID).Scan(&count)
	return count, err
}

const listManagerReportsByOrder = `SELECT ` + managerReportColumns + ` FROM manager_reports
WHERE order_id = $1
ORDER BY id`

func (q *Queries) ListManagerReportsByOrder(ctx context.Context, orderID int64) ([]ManagerReport, error) {
	rows, err := q.db.Query(ctx, listManagerReportsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanManagerReport)
}

// ManagerReportRow is a report joined with the cleaner's name and order address
// for listings and exports.
type ManagerReportRow struct {
	ManagerReport
	CleanerName  string `json:"cleaner_name"`
	OrderAddress string `json:"order_address"`
}

const listManagerReports = `SELECT mr.id, mr.order_id, mr.cleaner_id, mr.salary, mr.bonus, mr.bonus_description,
	mr.forfeit, mr.forfeit_description, mr.created_at,
	s.first_name || ' ' || s.last_name AS cleaner_name,
	o.address
FROM manager_reports mr
JOIN staff s ON s.id = mr.cleaner_id
JOIN orders o ON o.id = mr.order_id
WHERE ($1::timestamptz IS NULL OR mr.created_at >= $1)
  AND ($2::timestamptz IS NULL OR mr.created_at < $2)
ORDER BY mr.created_at DESC, mr.id`

type ListManagerReportsParams struct {
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
}

func (q *Queries) ListManagerReports(ctx context.Context, arg ListManagerReportsParams) ([]ManagerReportRow, error) {
	rows, err := q.db.Query(ctx, listManagerReports, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (ManagerReportRow, error) {
		var i ManagerReportRow
		err := row.Scan(
			&i.ID,
			&i.OrderID,
			&i.CleanerID,
			&i.Salary,
			&i.Bonus,
			&i.BonusDescription,
			&i.Forfeit,
			&i.ForfeitDescription,
			&i.CreatedAt,
			&i.CleanerName,
			&i.OrderAddress,
		)
		return i, err
	})
}

const createCashManager = `INSERT INTO cash_managers (staff_id, order_id, amount)
VALUES ($1, $2, $3)
RETURNING id, staff_id, order_id, amount, created_at`

func (q *Queries) CreateCashManager(ctx context.Context, staffID, orderID int64, amount decimal.Decimal) (CashManager, error) {
	var i CashManager
	err := q.db.QueryRow(ctx, createCashManager, staffID, orderID, amount).Scan(
		&i.ID,
		&i.StaffID,
		&i.OrderID,
		&i.Amount,
		&i.CreatedAt,
	)
	return i, err
}

const listCashByStaff = `SELECT id, staff_id, order_id, amount, created_at FROM cash_managers
WHERE staff_id = $1 AND created_at >= $2
ORDER BY created_at DESC`

func (q *Queries) ListCashByStaff(ctx context.Context, staffID int64, since time.Time) ([]CashManager, error) {
	rows, err := q.db.Query(ctx, listCashByStaff, staffID, since)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (CashManager, error) {
		var i CashManager
		err := row.Scan(&i.ID, &i.StaffID, &i.OrderID, &i.Amount, &i.CreatedAt)
		return i, err
	})
}
