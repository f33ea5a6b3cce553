package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/notify"
	"github.com/jackc/pgx/v5"
)

// MaxStaffBatch is how many people one batch request may assign.
const MaxStaffBatch = 5

// AssignmentStore defines the DB methods needed to staff an order.
// Satisfied by *database.Queries.
type AssignmentStore interface {
	eligibilityStore
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	ListEligibleStaff(ctx context.Context, arg database.ListEligibleStaffParams) ([]database.Staff, error)
	ListStaffOrdersByOrder(ctx context.Context, orderID int64) ([]database.StaffOrder, error)
	GetStaffOrder(ctx context.Context, id int64) (database.StaffOrder, error)
	CreateStaffOrder(ctx context.Context, arg database.CreateStaffOrderParams) (database.StaffOrder, error)
	DeleteStaffOrder(ctx context.Context, id int64) (database.StaffOrder, error)
	ClearBrigadier(ctx context.Context, orderID int64) error
	SetBrigadier(ctx context.Context, id int64) (database.StaffOrder, error)
}

type NewAssignmentStore func(db database.DBTX) AssignmentStore

type AssignmentService struct {
	pool     Pool
	newStore NewAssignmentStore
	notifier notify.Notifier
	loc      *time.Location
}

func NewAssignmentService(pool Pool, newStore NewAssignmentStore, notifier notify.Notifier, loc *time.Location) *AssignmentService {
	if loc == nil {
		loc = time.Local
	}
	return &AssignmentService{pool: pool, newStore: newStore, notifier: notifier, loc: loc}
}

// EligibleStaff lists field staff who can still be added to the order.
func (s *AssignmentService) EligibleStaff(ctx context.Context, orderID int64) ([]database.Staff, error) {
	store := s.newStore(s.pool)
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	staff, err := store.ListEligibleStaff(ctx, database.ListEligibleStaffParams{
		OrderID:   order.ID,
		Weekday:   ISOWeekday(order.WorkStart.In(s.loc)),
		WorkStart: order.WorkStart,
		WorkEnd:   order.WorkEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("list eligible staff: %w", err)
	}
	return staff, nil
}

// AddStaff assigns one person. A second brigadier is silently demoted to a
// regular cleaner.
func (s *AssignmentService) AddStaff(ctx context.Context, orderID, staffID int64, isBrigadier bool) (database.StaffOrder, error) {
	added, err := s.AddStaffBatch(ctx, orderID, []StaffRequest{{StaffID: staffID, IsBrigadier: isBrigadier}})
	if err != nil {
		return database.StaffOrder{}, err
	}
	return added[0], nil
}

// AddStaffBatch assigns up to MaxStaffBatch people atomically: either all of
// them are added or none.
func (s *AssignmentService) AddStaffBatch(ctx context.Context, orderID int64, reqs []StaffRequest) ([]database.StaffOrder, error) {
	if len(reqs) == 0 {
		return nil, ErrEntriesMismatch
	}
	if len(reqs) > MaxStaffBatch {
		return nil, ErrTooManyStaff
	}
	sorted, err := validateStaffRequests(reqs)
	if err != nil {
		return nil, err
	}

	var (
		order database.Order
		added []database.StaffOrder
	)
	err = inTx(ctx, s.pool, s.newStore, func(store AssignmentStore) error {
		var err error
		order, err = lockOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		existing, err := store.ListStaffOrdersByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list assignments: %w", err)
		}
		_, hasBrigadier := GetBrigadier(existing)

		for _, r := range sorted {
			if _, err := checkEligible(ctx, store, order, r.StaffID, s.loc); err != nil {
				return err
			}
			so, err := store.CreateStaffOrder(ctx, database.CreateStaffOrderParams{
				OrderID:     orderID,
				StaffID:     r.StaffID,
				IsBrigadier: r.IsBrigadier && !hasBrigadier,
			})
			if err != nil {
				return fmt.Errorf("create assignment: %w", err)
			}
			added = append(added, so)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := orderEvent(order)
	ev.Type = enum.EventStaffAdded
	ev.ManagerID = 0
	for _, so := range added {
		ev.StaffIDs = append(ev.StaffIDs, so.StaffID)
	}
	notify.Dispatch(ctx, s.notifier, ev)

	return added, nil
}

func (s *AssignmentService) RemoveStaff(ctx context.Context, orderID, staffOrderID int64) error {
	var (
		order   database.Order
		removed database.StaffOrder
	)
	err := inTx(ctx, s.pool, s.newStore, func(store AssignmentStore) error {
		var err error
		order, err = lockOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if _, err := assignmentOf(ctx, store, orderID, staffOrderID); err != nil {
			return err
		}
		removed, err = store.DeleteStaffOrder(ctx, staffOrderID)
		if err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ev := orderEvent(order)
	ev.Type = enum.EventStaffRemoved
	ev.ManagerID = 0
	ev.StaffIDs = []int64{removed.StaffID}
	notify.Dispatch(ctx, s.notifier, ev)
	return nil
}

// SetBrigadier moves the brigadier flag to staffOrderID.
func (s *AssignmentService) SetBrigadier(ctx context.Context, orderID, staffOrderID int64) (database.StaffOrder, error) {
	var updated database.StaffOrder
	err := inTx(ctx, s.pool, s.newStore, func(store AssignmentStore) error {
		if _, err := lockOpenOrder(ctx, store, orderID); err != nil {
			return err
		}
		if _, err := assignmentOf(ctx, store, orderID, staffOrderID); err != nil {
			return err
		}
		if err := store.ClearBrigadier(ctx, orderID); err != nil {
			return fmt.Errorf("clear brigadier: %w", err)
		}
		var err error
		updated, err = store.SetBrigadier(ctx, staffOrderID)
		if err != nil {
			return fmt.Errorf("set brigadier: %w", err)
		}
		return nil
	})
	return updated, err
}

func assignmentOf(ctx context.Context, store interface {
	GetStaffOrder(ctx context.Context, id int64) (database.StaffOrder, error)
}, orderID, staffOrderID int64) (database.StaffOrder, error) {
	so, err := store.GetStaffOrder(ctx, staffOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return so, ErrAssignmentNotFound
		}
		return so, fmt.Errorf("get assignment: %w", err)
	}
	if so.OrderID != orderID {
		return so, ErrAssignmentNotFound
	}
	return so, nil
}
