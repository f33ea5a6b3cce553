package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/notify"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// SettlementStore defines the DB methods needed to close an order.
// Satisfied by *database.Queries.
type SettlementStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	CountManagerReportsByOrder(ctx context.Context, orderID int64) (int64, error)
	ListStaffOrdersByOrder(ctx context.Context, orderID int64) ([]database.StaffOrder, error)
	ListForemanPhotosByOrder(ctx context.Context, orderID int64) ([]database.ForemanPhoto, error)
	SumServiceOrders(ctx context.Context, orderID int64) (decimal.Decimal, error)
	AddStaffSalary(ctx context.Context, id int64, amount decimal.Decimal) (database.Staff, error)
	AddStaffCash(ctx context.Context, id int64, amount decimal.Decimal) (database.Staff, error)
	CreateManagerReport(ctx context.Context, arg database.CreateManagerReportParams) (database.ManagerReport, error)
	FinishOrder(ctx context.Context, id int64, totalCost decimal.Decimal) (database.Order, error)
	CreateCashManager(ctx context.Context, staffID, orderID int64, amount decimal.Decimal) (database.CashManager, error)
	ListManagerReports(ctx context.Context, arg database.ListManagerReportsParams) ([]database.ManagerReportRow, error)
}

type NewSettlementStore func(db database.DBTX) SettlementStore

// ReportWriter renders manager report rows; see internal/report.
type ReportWriter func(w io.Writer, rows []database.ManagerReportRow) error

// ReportDraft is what the manager sees before settling: one default entry
// per assignment and the crew's photos.
type ReportDraft struct {
	Order        database.Order          `json:"order"`
	Total        decimal.Decimal         `json:"total"`
	Entries      []SalaryEntry           `json:"entries"`
	PhotosBefore []database.ForemanPhoto `json:"photos_before"`
	PhotosAfter  []database.ForemanPhoto `json:"photos_after"`
}

// ReportEntry is one submitted settlement line.
type ReportEntry struct {
	CleanerID          int64
	Salary             decimal.Decimal
	Bonus              decimal.Decimal
	BonusDescription   string
	Forfeit            decimal.Decimal
	ForfeitDescription string
}

// Credit is what lands on the cleaner's salary balance.
func (e ReportEntry) Credit() decimal.Decimal {
	return e.Salary.Add(e.Bonus).Sub(e.Forfeit)
}

type SettlementResult struct {
	Order   database.Order           `json:"order"`
	Reports []database.ManagerReport `json:"reports"`
	Cash    database.CashManager     `json:"cash"`
}

type SettlementService struct {
	pool     Pool
	newStore NewSettlementStore
	notifier notify.Notifier
	export   ReportWriter
}

func NewSettlementService(pool Pool, newStore NewSettlementStore, notifier notify.Notifier, export ReportWriter) *SettlementService {
	return &SettlementService{pool: pool, newStore: newStore, notifier: notifier, export: export}
}

// PrepareReport checks the settlement preconditions and returns default
// salaries. It writes nothing.
func (s *SettlementService) PrepareReport(ctx context.Context, orderID int64) (*ReportDraft, error) {
	store := s.newStore(s.pool)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if enum.IsTerminalStatus(order.Status) {
		return nil, ErrOrderClosed
	}

	assignments, total, err := s.checkPreconditions(ctx, store, order)
	if err != nil {
		return nil, err
	}

	entries, err := SalaryStaffs(order, total, assignments)
	if err != nil {
		return nil, err
	}

	photos, err := store.ListForemanPhotosByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	draft := &ReportDraft{
		Order:        order,
		Total:        total,
		Entries:      entries,
		PhotosBefore: []database.ForemanPhoto{},
		PhotosAfter:  []database.ForemanPhoto{},
	}
	for _, p := range photos {
		if p.IsAfter {
			draft.PhotosAfter = append(draft.PhotosAfter, p)
		} else {
			draft.PhotosBefore = append(draft.PhotosBefore, p)
		}
	}
	return draft, nil
}

// checkPreconditions returns the order's assignments and line total once
// no report exists, everyone accepted and the cleaners' part is set.
func (s *SettlementService) checkPreconditions(ctx context.Context, store SettlementStore, order database.Order) ([]database.StaffOrder, decimal.Decimal, error) {
	n, err := store.CountManagerReportsByOrder(ctx, order.ID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("count reports: %w", err)
	}
	if n > 0 {
		return nil, decimal.Zero, ErrReportExists
	}

	assignments, err := store.ListStaffOrdersByOrder(ctx, order.ID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("list assignments: %w", err)
	}
	if len(assignments) == 0 {
		return nil, decimal.Zero, ErrNotAllAccepted
	}
	for _, a := range assignments {
		if !a.IsAccept {
			return nil, decimal.Zero, ErrNotAllAccepted
		}
	}

	if !order.CleanersPart.Valid {
		return nil, decimal.Zero, ErrCleanersPartNotSet
	}

	total, err := store.SumServiceOrders(ctx, order.ID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("sum service lines: %w", err)
	}
	return assignments, total, nil
}

// Settle closes the order: credits salaries, records the reports, credits
// the order's manager with the order total, finishes the order and writes
// the cash ledger entry. Any failure leaves nothing behind.
func (s *SettlementService) Settle(ctx context.Context, orderID int64, entries []ReportEntry) (*SettlementResult, error) {
	for _, e := range entries {
		if e.Salary.IsNegative() || e.Bonus.IsNegative() || e.Forfeit.IsNegative() {
			return nil, ErrNegativeMoney
		}
	}

	var result SettlementResult
	var assignments []database.StaffOrder
	err := inTx(ctx, s.pool, s.newStore, func(store SettlementStore) error {
		order, err := lockOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}

		var total decimal.Decimal
		assignments, total, err = s.checkPreconditions(ctx, store, order)
		if err != nil {
			return err
		}

		if err := validateEntries(order, assignments, entries); err != nil {
			return err
		}

		for _, e := range entries {
			if _, err := store.AddStaffSalary(ctx, e.CleanerID, e.Credit()); err != nil {
				return fmt.Errorf("credit salary of %d: %w", e.CleanerID, err)
			}
			mr, err := store.CreateManagerReport(ctx, database.CreateManagerReportParams{
				OrderID:            orderID,
				CleanerID:          e.CleanerID,
				Salary:             e.Salary,
				Bonus:              e.Bonus,
				BonusDescription:   pgtype.Text{String: e.BonusDescription, Valid: e.BonusDescription != ""},
				Forfeit:            e.Forfeit,
				ForfeitDescription: pgtype.Text{String: e.ForfeitDescription, Valid: e.ForfeitDescription != ""},
			})
			if err != nil {
				return fmt.Errorf("create report for %d: %w", e.CleanerID, err)
			}
			result.Reports = append(result.Reports, mr)
		}

		if _, err := store.AddStaffCash(ctx, order.ManagerID, total); err != nil {
			return fmt.Errorf("credit manager cash: %w", err)
		}

		result.Order, err = finishOrder(ctx, store, orderID, total)
		if err != nil {
			return err
		}

		result.Cash, err = store.CreateCashManager(ctx, order.ManagerID, orderID, total)
		if err != nil {
			return fmt.Errorf("record cash: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := orderEvent(result.Order)
	ev.Type = enum.EventOrderFinished
	for _, a := range assignments {
		ev.StaffIDs = append(ev.StaffIDs, a.StaffID)
	}
	notify.Dispatch(ctx, s.notifier, ev)

	return &result, nil
}

// validateEntries wants exactly one entry per assignment, a bonus only on the
// brigadier, and salaries summing to at most the cleaners' part.
func validateEntries(order database.Order, assignments []database.StaffOrder, entries []ReportEntry) error {
	if len(entries) != len(assignments) {
		return ErrEntriesMismatch
	}
	byStaff := make(map[int64]database.StaffOrder, len(assignments))
	for _, a := range assignments {
		byStaff[a.StaffID] = a
	}

	seen := make(map[int64]bool, len(entries))
	sum := decimal.Zero
	for _, e := range entries {
		a, ok := byStaff[e.CleanerID]
		if !ok {
			return fmt.Errorf("cleaner %d: %w", e.CleanerID, ErrUnknownCleaner)
		}
		if seen[e.CleanerID] {
			return fmt.Errorf("cleaner %d: %w", e.CleanerID, ErrDuplicateStaff)
		}
		seen[e.CleanerID] = true
		if !a.IsBrigadier && !e.Bonus.IsZero() {
			return fmt.Errorf("cleaner %d: %w", e.CleanerID, ErrBonusNotAllowed)
		}
		sum = sum.Add(e.Salary)
	}

	if sum.GreaterThan(order.CleanersPart.Decimal) {
		return ErrSalaryCapExceeded
	}
	return nil
}

// finishOrder sets the final total; a terminal order is never finished twice.
func finishOrder(ctx context.Context, store interface {
	FinishOrder(ctx context.Context, id int64, totalCost decimal.Decimal) (database.Order, error)
}, id int64, total decimal.Decimal) (database.Order, error) {
	o, err := store.FinishOrder(ctx, id, total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, ErrOrderClosed
		}
		return o, fmt.Errorf("finish order: %w", err)
	}
	return o, nil
}

// ListReports returns reports created in [from, to); nil bounds are open.
func (s *SettlementService) ListReports(ctx context.Context, from, to *time.Time) ([]database.ManagerReportRow, error) {
	rows, err := s.newStore(s.pool).ListManagerReports(ctx, database.ListManagerReportsParams{
		StartDate: optionalTime(from),
		EndDate:   optionalTime(to),
	})
	if err != nil {
		return nil, fmt.Errorf("list manager reports: %w", err)
	}
	return rows, nil
}

func (s *SettlementService) ExportReports(ctx context.Context, w io.Writer, from, to *time.Time) error {
	rows, err := s.ListReports(ctx, from, to)
	if err != nil {
		return err
	}
	return s.export(w, rows)
}

func optionalTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
