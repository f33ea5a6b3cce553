package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const staffColumns = `id, phone, first_name, last_name, hashed_password, role, is_active, black_list,
	schedule, salary_balance, cash_balance, telegram_chat_id, photo_path, created_at, updated_at`

func scanStaff(row pgx.Row) (Staff, error) {
	var i Staff
	err := row.Scan(
		&i.ID,
		&i.Phone,
		&i.FirstName,
		&i.LastName,
		&i.HashedPassword,
		&i.Role,
		&i.IsActive,
		&i.BlackList,
		&i.Schedule,
		&i.SalaryBalance,
		&i.CashBalance,
		&i.TelegramChatID,
		&i.PhotoPath,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createStaff = `INSERT INTO staff (phone, first_name, last_name, hashed_password, role, schedule, telegram_chat_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + staffColumns

type CreateStaffParams struct {
	Phone          string      `json:"phone"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
	Schedule       []int16     `json:"schedule"`
	TelegramChatID pgtype.Int8 `json:"telegram_chat_id"`
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	schedule := arg.Schedule
	if schedule == nil {
		schedule = []int16{}
	}
	row := q.db.QueryRow(ctx, createStaff,
		arg.Phone,
		arg.FirstName,
		arg.LastName,
		arg.HashedPassword,
		arg.Role,
		schedule,
		arg.TelegramChatID,
	)
	return scanStaff(row)
}

const getStaff = `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`

func (q *Queries) GetStaff(ctx context.Context, id int64) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, getStaff, id))
}

const getStaffForUpdate = `SELECT ` + staffColumns + ` FROM staff WHERE id = $1 FOR UPDATE`

// GetStaffForUpdate row-locks the staff member so concurrent assignments
// serialize on the overlap check.
func (q *Queries) GetStaffForUpdate(ctx context.Context, id int64) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, getStaffForUpdate, id))
}

const getStaffByPhone = `SELECT ` + staffColumns + ` FROM staff WHERE phone = $1 AND is_active = true`

func (q *Queries) GetStaffByPhone(ctx context.Context, phone string) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, getStaffByPhone, phone))
}

const listStaff = `SELECT ` + staffColumns + ` FROM staff
WHERE is_active = true
  AND ($1::text IS NULL OR role = $1)
  AND ($2::text IS NULL OR first_name ILIKE '%' || $2 || '%' OR last_name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%')
ORDER BY last_name, first_name
LIMIT $3 OFFSET $4`

type ListStaffParams struct {
	Role   pgtype.Text `json:"role"`
	Search pgtype.Text `json:"search"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListStaff(ctx context.Context, arg ListStaffParams) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listStaff, arg.Role, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaff)
}

const listBlacklistedStaff = `SELECT ` + staffColumns + ` FROM staff
WHERE black_list = true
ORDER BY last_name, first_name`

func (q *Queries) ListBlacklistedStaff(ctx context.Context) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listBlacklistedStaff)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaff)
}

const updateStaff = `UPDATE staff
SET phone = $2, first_name = $3, last_name = $4, role = $5, telegram_chat_id = $6, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + staffColumns

type UpdateStaffParams struct {
	ID             int64       `json:"id"`
	Phone          string      `json:"phone"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Role           string      `json:"role"`
	TelegramChatID pgtype.Int8 `json:"telegram_chat_id"`
}

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, updateStaff,
		arg.ID,
		arg.Phone,
		arg.FirstName,
		arg.LastName,
		arg.Role,
		arg.TelegramChatID,
	)
	return scanStaff(row)
}

const updateStaffPassword = `UPDATE staff SET hashed_password = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateStaffPassword(ctx context.Context, id int64, hashedPassword string) error {
	_, err := q.db.Exec(ctx, updateStaffPassword, id, hashedPassword)
	return err
}

const updateStaffPhoto = `UPDATE staff SET photo_path = $2, updated_at = now()
WHERE id = $1
RETURNING ` + staffColumns

func (q *Queries) UpdateStaffPhoto(ctx context.Context, id int64, path string) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, updateStaffPhoto, id, path))
}

const updateStaffSchedule = `UPDATE staff SET schedule = $2, updated_at = now()
WHERE id = $1
RETURNING ` + staffColumns

func (q *Queries) UpdateStaffSchedule(ctx context.Context, id int64, schedule []int16) (Staff, error) {
	if schedule == nil {
		schedule = []int16{}
	}
	return scanStaff(q.db.QueryRow(ctx, updateStaffSchedule, id, schedule))
}

const setStaffBlacklist = `UPDATE staff SET black_list = $2, updated_at = now()
WHERE id = $1
RETURNING ` + staffColumns

func (q *Queries) SetStaffBlacklist(ctx context.Context, id int64, blackList bool) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, setStaffBlacklist, id, blackList))
}

const deactivateStaff = `UPDATE staff SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id`

func (q *Queries) DeactivateStaff(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deactivateStaff, id)
	var deactivated int64
	err := row.Scan(&deactivated)
	return deactivated, err
}

const addStaffSalary = `UPDATE staff SET salary_balance = salary_balance + $2, updated_at = now()
WHERE id = $1
RETURNING ` + staffColumns

func (q *Queries) AddStaffSalary(ctx context.Context, id int64, amount decimal.Decimal) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, addStaffSalary, id, amount))
}

const addStaffCash = `UPDATE staff SET cash_balance = cash_balance + $2, updated_at = now()
WHERE id = $1
RETURNING ` + staffColumns

func (q *Queries) AddStaffCash(ctx context.Context, id int64, amount decimal.Decimal) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, addStaffCash, id, amount))
}

// Overlap is a closed-interval test: a.start <= b.end AND b.start <= a.end.
const listEligibleStaff = `SELECT ` + staffColumns + ` FROM staff s
WHERE s.role IN ('BRIGADIER', 'CLEANER')
  AND s.is_active = true
  AND s.black_list = false
  AND $2::smallint = ANY(s.schedule)
  AND NOT EXISTS (
    SELECT 1 FROM staff_orders so WHERE so.order_id = $1 AND so.staff_id = s.id
  )
  AND NOT EXISTS (
    SELECT 1 FROM staff_orders so
    JOIN orders o ON o.id = so.order_id
    WHERE so.staff_id = s.id
      AND o.id <> $1
      AND o.status <> 'canceled'
      AND o.work_start <= $4
      AND $3 <= o.work_end
  )
ORDER BY s.last_name, s.first_name`

type ListEligibleStaffParams struct {
	OrderID   int64     `json:"order_id"`
	Weekday   int16     `json:"weekday"`
	WorkStart time.Time `json:"work_start"`
	WorkEnd   time.Time `json:"work_end"`
}

func (q *Queries) ListEligibleStaff(ctx context.Context, arg ListEligibleStaffParams) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listEligibleStaff, arg.OrderID, arg.Weekday, arg.WorkStart, arg.WorkEnd)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaff)
}

const countOverlappingAssignments = `SELECT count(*) FROM staff_orders so
JOIN orders o ON o.id = so.order_id
WHERE so.staff_id = $1
  AND o.id <> $2
  AND o.status <> 'canceled'
  AND o.work_start <= $4
  AND $3 <= o.work_end`

type CountOverlappingAssignmentsParams struct {
	StaffID   int64     `json:"staff_id"`
	OrderID   int64     `json:"order_id"`
	WorkStart time.Time `json:"work_start"`
	WorkEnd   time.Time `json:"work_end"`
}

func (q *Queries) CountOverlappingAssignments(ctx context.Context, arg CountOverlappingAssignmentsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOverlappingAssignments, arg.StaffID, arg.OrderID, arg.WorkStart, arg.WorkEnd)
	var count int64
	err := row.Scan(&count)
	return count, err
}
