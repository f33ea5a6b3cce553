package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/media"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// CrewStore defines the DB methods used by field staff.
// Satisfied by *database.Queries.
type CrewStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetStaffOrderByOrderAndStaff(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error)
	ListStaffOrdersByStaff(ctx context.Context, staffID int64) ([]database.StaffOrder, error)
	AcceptStaffOrder(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error)
	MarkInPlace(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error)
	StartOrderWork(ctx context.Context, id int64) (database.Order, error)
	EndOrderWork(ctx context.Context, id int64) (database.Order, error)
	CreateForemanReport(ctx context.Context, arg database.CreateForemanReportParams) (database.ForemanReport, error)
	CreateForemanPhoto(ctx context.Context, staffOrderID int64, imagePath string, isAfter bool) (database.ForemanPhoto, error)
	CreateForemanOrderUpdate(ctx context.Context, arg database.CreateForemanOrderUpdateParams) (database.ForemanOrderUpdate, error)
}

// ImageSaver is satisfied by *media.Store.
type ImageSaver interface {
	SaveImage(dir, filename string, r io.Reader) (string, error)
	Remove(rel string) error
}

type CrewService struct {
	store  CrewStore
	images ImageSaver
}

// NewCrewService takes a pool-bound store: every crew action is a single
// guarded statement, so none of them needs a transaction.
func NewCrewService(store CrewStore, images ImageSaver) *CrewService {
	return &CrewService{store: store, images: images}
}

// MyOrder is one assignment of the caller together with its order.
type MyOrder struct {
	Assignment database.StaffOrder `json:"assignment"`
	Order      database.Order      `json:"order"`
}

func (s *CrewService) MyOrders(ctx context.Context, staffID int64) ([]MyOrder, error) {
	assignments, err := s.store.ListStaffOrdersByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]MyOrder, 0, len(assignments))
	for _, a := range assignments {
		o, err := s.store.GetOrder(ctx, a.OrderID)
		if err != nil {
			return nil, fmt.Errorf("get order %d: %w", a.OrderID, err)
		}
		out = append(out, MyOrder{Assignment: a, Order: o})
	}
	return out, nil
}

// assignment loads the caller's assignment on an open order.
func (s *CrewService) assignment(ctx context.Context, orderID, staffID int64) (database.Order, database.StaffOrder, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, database.StaffOrder{}, ErrOrderNotFound
		}
		return order, database.StaffOrder{}, fmt.Errorf("get order: %w", err)
	}
	so, err := s.store.GetStaffOrderByOrderAndStaff(ctx, orderID, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, so, ErrNotAssigned
		}
		return order, so, fmt.Errorf("get assignment: %w", err)
	}
	if enum.IsTerminalStatus(order.Status) {
		return order, so, ErrOrderClosed
	}
	return order, so, nil
}

func (s *CrewService) brigadier(ctx context.Context, orderID, staffID int64) (database.Order, database.StaffOrder, error) {
	order, so, err := s.assignment(ctx, orderID, staffID)
	if err != nil {
		return order, so, err
	}
	if !so.IsBrigadier {
		return order, so, ErrNotBrigadier
	}
	return order, so, nil
}

func (s *CrewService) Accept(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error) {
	if _, _, err := s.assignment(ctx, orderID, staffID); err != nil {
		return database.StaffOrder{}, err
	}
	return s.store.AcceptStaffOrder(ctx, orderID, staffID)
}

// InPlace records arrival at the address.
func (s *CrewService) InPlace(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error) {
	_, so, err := s.assignment(ctx, orderID, staffID)
	if err != nil {
		return so, err
	}
	if !so.IsAccept {
		return so, ErrNotAccepted
	}
	return s.store.MarkInPlace(ctx, orderID, staffID)
}

// StartWork moves a new order to in_progress.
func (s *CrewService) StartWork(ctx context.Context, orderID, staffID int64) (database.Order, error) {
	if _, _, err := s.brigadier(ctx, orderID, staffID); err != nil {
		return database.Order{}, err
	}
	o, err := s.store.StartOrderWork(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, ErrInvalidTransition
	}
	return o, err
}

func (s *CrewService) EndWork(ctx context.Context, orderID, staffID int64) (database.Order, error) {
	if _, _, err := s.brigadier(ctx, orderID, staffID); err != nil {
		return database.Order{}, err
	}
	o, err := s.store.EndOrderWork(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, ErrInvalidTransition
	}
	return o, err
}

type ForemanReportRequest struct {
	Expenses *decimal.Decimal
	StartAt  time.Time
	EndAt    time.Time
}

func (s *CrewService) SubmitForemanReport(ctx context.Context, orderID, staffID int64, req ForemanReportRequest) (database.ForemanReport, error) {
	_, so, err := s.brigadier(ctx, orderID, staffID)
	if err != nil {
		return database.ForemanReport{}, err
	}
	if !req.EndAt.After(req.StartAt) {
		return database.ForemanReport{}, ErrInvalidWorkWindow
	}

	expenses := decimal.NullDecimal{}
	if req.Expenses != nil {
		if req.Expenses.IsNegative() {
			return database.ForemanReport{}, ErrNegativeMoney
		}
		expenses = decimal.NewNullDecimal(*req.Expenses)
	}

	return s.store.CreateForemanReport(ctx, database.CreateForemanReportParams{
		StaffOrderID: so.ID,
		Expenses:     expenses,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
	})
}

// AddPhoto stores a before or after photo of the object.
func (s *CrewService) AddPhoto(ctx context.Context, orderID, staffID int64, isAfter bool, filename string, r io.Reader) (database.ForemanPhoto, error) {
	_, so, err := s.brigadier(ctx, orderID, staffID)
	if err != nil {
		return database.ForemanPhoto{}, err
	}

	path, err := s.images.SaveImage(fmt.Sprintf("orders/%d", orderID), filename, r)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) {
			return database.ForemanPhoto{}, ErrUnsupportedImage
		}
		return database.ForemanPhoto{}, fmt.Errorf("save photo: %w", err)
	}

	photo, err := s.store.CreateForemanPhoto(ctx, so.ID, path, isAfter)
	if err != nil {
		s.images.Remove(path) //nolint:errcheck
		return photo, fmt.Errorf("create photo: %w", err)
	}
	return photo, nil
}

type OrderUpdateRequest struct {
	ServiceID      int64
	ExtraServiceID int64
	Amount         int32
}

// ProposeUpdate records a correction the brigadier found on site; the
// manager applies it to the order lines.
func (s *CrewService) ProposeUpdate(ctx context.Context, orderID, staffID int64, req OrderUpdateRequest) (database.ForemanOrderUpdate, error) {
	if (req.ServiceID == 0) == (req.ExtraServiceID == 0) {
		return database.ForemanOrderUpdate{}, ErrInvalidLine
	}
	if req.Amount <= 0 {
		return database.ForemanOrderUpdate{}, ErrInvalidAmount
	}
	if _, _, err := s.brigadier(ctx, orderID, staffID); err != nil {
		return database.ForemanOrderUpdate{}, err
	}

	return s.store.CreateForemanOrderUpdate(ctx, database.CreateForemanOrderUpdateParams{
		OrderID:        orderID,
		StaffID:        staffID,
		ServiceID:      pgtype.Int8{Int64: req.ServiceID, Valid: req.ServiceID != 0},
		ExtraServiceID: pgtype.Int8{Int64: req.ExtraServiceID, Valid: req.ExtraServiceID != 0},
		Amount:         req.Amount,
	})
}
