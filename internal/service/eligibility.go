package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/jackc/pgx/v5"
)

type eligibilityStore interface {
	GetStaffForUpdate(ctx context.Context, id int64) (database.Staff, error)
	GetStaffOrderByOrderAndStaff(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error)
	CountOverlappingAssignments(ctx context.Context, arg database.CountOverlappingAssignmentsParams) (int64, error)
}

// checkEligible locks the staff row, then applies the same filter as
// ListEligibleStaff. Holding the lock until commit keeps two transactions
// from booking one person into overlapping windows.
func checkEligible(ctx context.Context, store eligibilityStore, order database.Order, staffID int64, loc *time.Location) (database.Staff, error) {
	staff, err := store.GetStaffForUpdate(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return staff, fmt.Errorf("staff %d: %w", staffID, ErrStaffNotFound)
		}
		return staff, fmt.Errorf("lock staff %d: %w", staffID, err)
	}

	if reason := ineligibleReason(staff, order.WorkStart.In(loc)); reason != "" {
		return staff, fmt.Errorf("%w: %s %s", ErrStaffNotEligible, staff.FullName(), reason)
	}

	_, err = store.GetStaffOrderByOrderAndStaff(ctx, order.ID, staffID)
	if err == nil {
		return staff, fmt.Errorf("%s: %w", staff.FullName(), ErrStaffAlreadyAssigned)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return staff, fmt.Errorf("get assignment: %w", err)
	}

	n, err := store.CountOverlappingAssignments(ctx, database.CountOverlappingAssignmentsParams{
		StaffID:   staffID,
		OrderID:   order.ID,
		WorkStart: order.WorkStart,
		WorkEnd:   order.WorkEnd,
	})
	if err != nil {
		return staff, fmt.Errorf("count overlapping assignments: %w", err)
	}
	if n > 0 {
		return staff, fmt.Errorf("%w: %s has an overlapping order", ErrStaffNotEligible, staff.FullName())
	}
	return staff, nil
}

func ineligibleReason(s database.Staff, start time.Time) string {
	switch {
	case !enum.IsFieldRole(s.Role):
		return "is not field staff"
	case !s.IsActive:
		return "is inactive"
	case s.BlackList:
		return "is blacklisted"
	case !WorksOn(s.Schedule, start):
		return "does not work on " + start.Weekday().String()
	}
	return ""
}

// StaffRequest asks for one staff member on an order.
type StaffRequest struct {
	StaffID     int64
	IsBrigadier bool
}

// validateStaffRequests rejects duplicates and more than one brigadier, and
// returns the requests sorted by staff id so row locks are always taken in
// the same order.
func validateStaffRequests(reqs []StaffRequest) ([]StaffRequest, error) {
	seen := make(map[int64]bool, len(reqs))
	brigadiers := 0
	for _, r := range reqs {
		if seen[r.StaffID] {
			return nil, fmt.Errorf("staff %d: %w", r.StaffID, ErrDuplicateStaff)
		}
		seen[r.StaffID] = true
		if r.IsBrigadier {
			brigadiers++
		}
	}
	if brigadiers > 1 {
		return nil, ErrTooManyBrigadiers
	}

	sorted := slices.Clone(reqs)
	slices.SortFunc(sorted, func(a, b StaffRequest) int {
		switch {
		case a.StaffID < b.StaffID:
			return -1
		case a.StaffID > b.StaffID:
			return 1
		}
		return 0
	})
	return sorted, nil
}
