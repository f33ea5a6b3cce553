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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type catalogStore interface {
	GetService(ctx context.Context, id int64) (database.Service, error)
	GetExtraService(ctx context.Context, id int64) (database.ExtraService, error)
}

// OrderStore defines the DB methods the order aggregate needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	eligibilityStore
	catalogStore
	GetClient(ctx context.Context, id int64) (database.Client, error)
	GetInventory(ctx context.Context, id int64) (database.Inventory, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateServiceOrder(ctx context.Context, arg database.CreateServiceOrderParams) (database.ServiceOrder, error)
	CreateStaffOrder(ctx context.Context, arg database.CreateStaffOrderParams) (database.StaffOrder, error)
	CreateInventoryInOrder(ctx context.Context, orderID, inventoryID int64, amount int32) (database.InventoryInOrder, error)
	ConsumeCleanser(ctx context.Context, id int64, amount int32) (database.Cleanser, error)
	CreateCleanserInOrder(ctx context.Context, orderID, cleanserID int64, amount int32) (database.CleanserInOrder, error)
	CancelOrder(ctx context.Context, id int64) (database.Order, error)
	SetCleanersPart(ctx context.Context, id int64, amount decimal.Decimal) (database.Order, error)
	SumServiceOrders(ctx context.Context, orderID int64) (decimal.Decimal, error)
	GetServiceOrder(ctx context.Context, id, orderID int64) (database.ServiceOrder, error)
	UpdateServiceOrder(ctx context.Context, arg database.UpdateServiceOrderParams) (database.ServiceOrder, error)
	DeleteServiceOrder(ctx context.Context, id, orderID int64) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// ServiceLineRequest prices one catalog entry into an order. Exactly one of
// ServiceID and ExtraServiceID is set. A zero Rate means 1.0.
type ServiceLineRequest struct {
	ServiceID      int64
	ExtraServiceID int64
	Amount         int32
	Rate           decimal.Decimal
}

// ConsumableRequest attaches inventory or cleanser stock to an order.
type ConsumableRequest struct {
	ID     int64
	Amount int32
}

type CreateOrderRequest struct {
	ManagerID    int64
	ClientID     int64
	Address      string
	WorkStart    time.Time
	CleaningTime int32
	ObjectTypeID int64
	PaymentType  string
	Description  string
	Services     []ServiceLineRequest
	Staff        []StaffRequest
	Inventory    []ConsumableRequest
	Cleansers    []ConsumableRequest
}

// OrderDetail is an order with everything attached to it.
type OrderDetail struct {
	Order     database.Order
	Total     decimal.Decimal
	Services  []database.ServiceOrder
	Staff     []database.StaffOrder
	Inventory []database.InventoryInOrder
	Cleansers []database.CleanserInOrder
}

type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	notifier notify.Notifier
	loc      *time.Location
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, notifier notify.Notifier, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &OrderService{pool: pool, newStore: newStore, notifier: notifier, loc: loc}
}

// CreateOrder validates the request, prices every line from the catalog,
// checks staff eligibility and writes the whole order in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}
	staffReqs, err := validateStaffRequests(req.Staff)
	if err != nil {
		return nil, err
	}

	var detail OrderDetail
	err = inTx(ctx, s.pool, s.newStore, func(store OrderStore) error {
		if _, err := store.GetClient(ctx, req.ClientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrClientNotFound
			}
			return fmt.Errorf("get client: %w", err)
		}

		lines := make([]database.CreateServiceOrderParams, 0, len(req.Services))
		for i, l := range req.Services {
			p, err := priceLine(ctx, store, l)
			if err != nil {
				return fmt.Errorf("services[%d]: %w", i, err)
			}
			lines = append(lines, p)
		}

		order, err := store.CreateOrder(ctx, database.CreateOrderParams{
			WorkStart:    req.WorkStart,
			CleaningTime: req.CleaningTime,
			WorkEnd:      WorkEnd(req.WorkStart, req.CleaningTime),
			ClientID:     req.ClientID,
			Address:      req.Address,
			ObjectTypeID: pgtype.Int8{Int64: req.ObjectTypeID, Valid: req.ObjectTypeID != 0},
			ManagerID:    req.ManagerID,
			PaymentType:  req.PaymentType,
			Description:  pgtype.Text{String: req.Description, Valid: req.Description != ""},
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		detail.Order = order

		for _, p := range lines {
			p.OrderID = order.ID
			so, err := store.CreateServiceOrder(ctx, p)
			if err != nil {
				return fmt.Errorf("create service line: %w", err)
			}
			detail.Services = append(detail.Services, so)
		}
		detail.Total = OrderTotal(detail.Services)

		for _, sr := range staffReqs {
			if _, err := checkEligible(ctx, store, order, sr.StaffID, s.loc); err != nil {
				return err
			}
			so, err := store.CreateStaffOrder(ctx, database.CreateStaffOrderParams{
				OrderID:     order.ID,
				StaffID:     sr.StaffID,
				IsBrigadier: sr.IsBrigadier,
			})
			if err != nil {
				return fmt.Errorf("create staff assignment: %w", err)
			}
			detail.Staff = append(detail.Staff, so)
		}

		for i, inv := range req.Inventory {
			if _, err := store.GetInventory(ctx, inv.ID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("inventory[%d]: %w", i, ErrInventoryNotFound)
				}
				return fmt.Errorf("inventory[%d]: %w", i, err)
			}
			row, err := store.CreateInventoryInOrder(ctx, order.ID, inv.ID, inv.Amount)
			if err != nil {
				return fmt.Errorf("inventory[%d]: %w", i, err)
			}
			detail.Inventory = append(detail.Inventory, row)
		}

		for i, c := range req.Cleansers {
			if _, err := store.ConsumeCleanser(ctx, c.ID, c.Amount); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("cleansers[%d]: %w", i, ErrInsufficientStock)
				}
				return fmt.Errorf("cleansers[%d]: %w", i, err)
			}
			row, err := store.CreateCleanserInOrder(ctx, order.ID, c.ID, c.Amount)
			if err != nil {
				return fmt.Errorf("cleansers[%d]: %w", i, err)
			}
			detail.Cleansers = append(detail.Cleansers, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := orderEvent(detail.Order)
	ev.Type = enum.EventOrderCreated
	notify.Dispatch(ctx, s.notifier, ev)

	if len(detail.Staff) > 0 {
		ev.Type = enum.EventStaffAdded
		for _, so := range detail.Staff {
			ev.StaffIDs = append(ev.StaffIDs, so.StaffID)
		}
		ev.ManagerID = 0
		notify.Dispatch(ctx, s.notifier, ev)
	}

	return &detail, nil
}

func validateCreateOrder(req CreateOrderRequest) error {
	if req.Address == "" {
		return ErrMissingAddress
	}
	if req.WorkStart.IsZero() {
		return ErrMissingWorkStart
	}
	if req.CleaningTime <= 0 {
		return ErrInvalidCleaningTime
	}
	if req.PaymentType != enum.PaymentTypeCash && req.PaymentType != enum.PaymentTypeCashless {
		return ErrInvalidPaymentType
	}
	if len(req.Services) == 0 {
		return ErrEmptyServices
	}
	for i, l := range req.Services {
		if err := validateLine(l); err != nil {
			return fmt.Errorf("services[%d]: %w", i, err)
		}
	}
	for i, c := range append(append([]ConsumableRequest{}, req.Inventory...), req.Cleansers...) {
		if c.Amount <= 0 {
			return fmt.Errorf("consumables[%d]: %w", i, ErrInvalidAmount)
		}
	}
	return nil
}

func validateLine(l ServiceLineRequest) error {
	if (l.ServiceID == 0) == (l.ExtraServiceID == 0) {
		return ErrInvalidLine
	}
	if l.Amount <= 0 {
		return ErrInvalidAmount
	}
	if l.Rate.IsZero() {
		return nil
	}
	return ValidateRate(l.Rate)
}

// priceLine looks up the catalog price and computes the line total.
func priceLine(ctx context.Context, store catalogStore, l ServiceLineRequest) (database.CreateServiceOrderParams, error) {
	rate := l.Rate
	if rate.IsZero() {
		rate = MinRate
	}

	p := database.CreateServiceOrderParams{Amount: l.Amount, Rate: rate}
	var price decimal.Decimal
	if l.ServiceID != 0 {
		svc, err := store.GetService(ctx, l.ServiceID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return p, ErrServiceNotFound
			}
			return p, fmt.Errorf("get service: %w", err)
		}
		price = svc.Price
		p.ServiceID = pgtype.Int8{Int64: svc.ID, Valid: true}
	} else {
		extra, err := store.GetExtraService(ctx, l.ExtraServiceID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return p, ErrServiceNotFound
			}
			return p, fmt.Errorf("get extra service: %w", err)
		}
		price = extra.Price
		p.ExtraServiceID = pgtype.Int8{Int64: extra.ID, Valid: true}
	}
	p.Total = LineTotal(l.Amount, price, rate)
	return p, nil
}

// lockOpenOrder loads the order FOR UPDATE and rejects terminal orders.
func lockOpenOrder(ctx context.Context, store interface {
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
}, id int64) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, ErrOrderNotFound
		}
		return order, fmt.Errorf("lock order: %w", err)
	}
	if enum.IsTerminalStatus(order.Status) {
		return order, ErrOrderClosed
	}
	return order, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, id int64) (database.Order, error) {
	var canceled database.Order
	err := inTx(ctx, s.pool, s.newStore, func(store OrderStore) error {
		if _, err := lockOpenOrder(ctx, store, id); err != nil {
			return err
		}
		o, err := store.CancelOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderClosed
			}
			return fmt.Errorf("cancel order: %w", err)
		}
		canceled = o
		return nil
	})
	return canceled, err
}

// SetCleanersPart fixes the share of the order total paid out to the crew.
func (s *OrderService) SetCleanersPart(ctx context.Context, id int64, amount decimal.Decimal) (database.Order, error) {
	var updated database.Order
	err := inTx(ctx, s.pool, s.newStore, func(store OrderStore) error {
		if _, err := lockOpenOrder(ctx, store, id); err != nil {
			return err
		}
		total, err := store.SumServiceOrders(ctx, id)
		if err != nil {
			return fmt.Errorf("sum service lines: %w", err)
		}
		if !amount.IsPositive() || amount.GreaterThan(total) {
			return ErrInvalidCleanersPart
		}
		updated, err = store.SetCleanersPart(ctx, id, amount)
		if err != nil {
			return fmt.Errorf("set cleaners part: %w", err)
		}
		return nil
	})
	return updated, err
}

func (s *OrderService) AddServiceLine(ctx context.Context, orderID int64, l ServiceLineRequest) (database.ServiceOrder, error) {
	if err := validateLine(l); err != nil {
		return database.ServiceOrder{}, err
	}
	var created database.ServiceOrder
	err := inTx(ctx, s.pool, s.newStore, func(store OrderStore) error {
		if _, err := lockOpenOrder(ctx, store, orderID); err != nil {
			return err
		}
		p, err := priceLine(ctx, store, l)
		if err != nil {
			return err
		}
		p.OrderID = orderID
		created, err = store.CreateServiceOrder(ctx, p)
		if err != nil {
			return fmt.Errorf("create service line: %w", err)
		}
		return nil
	})
	return created, err
}

// UpdateServiceLine changes amount and rate and re-prices the line at the
// current catalog price.
func (s *OrderService) UpdateServiceLine(ctx context.Context, orderID, lineID int64, amount int32, rate decimal.Decimal) (database.ServiceOrder, error) {
	var updated database.ServiceOrder
	err := inTx(ctx, s.pool, s.newStore, func(store OrderStore) error {
		order, err := lockOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		line, err := store.GetServiceOrder(ctx, lineID, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLineNotFound
			}
			return fmt.Errorf("get service line: %w", err)
		}

		req := ServiceLineRequest{
			ServiceID:      line.ServiceID.Int64,
			ExtraServiceID: line.ExtraServiceID.Int64,
			Amount:         amount,
			Rate:           rate,
		}
		if err := validateLine(req); err != nil {
			return err
		}
		p, err := priceLine(ctx, store, req)
		if err != nil {
			return err
		}
		if err := keepsCleanersPart(ctx, store, order, p.Total.Sub(line.Total)); err != nil {
			return err
		}

		updated, err = store.UpdateServiceOrder(ctx, database.UpdateServiceOrderParams{
			ID:      lineID,
			OrderID: orderID,
			Amount:  p.Amount,
			Rate:    p.Rate,
			Total:   p.Total,
		})
		if err != nil {
			return fmt.Errorf("update service line: %w", err)
		}
		return nil
	})
	return updated, err
}

func (s *OrderService) DeleteServiceLine(ctx context.Context, orderID, lineID int64) error {
	return inTx(ctx, s.pool, s.newStore, func(store OrderStore) error {
		order, err := lockOpenOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		line, err := store.GetServiceOrder(ctx, lineID, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLineNotFound
			}
			return fmt.Errorf("get service line: %w", err)
		}
		if err := keepsCleanersPart(ctx, store, order, line.Total.Neg()); err != nil {
			return err
		}
		if _, err := store.DeleteServiceOrder(ctx, lineID, orderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLineNotFound
			}
			return fmt.Errorf("delete service line: %w", err)
		}
		return nil
	})
}

// keepsCleanersPart rejects a line change that would push the order total
// below an already fixed cleaners' part.
func keepsCleanersPart(ctx context.Context, store interface {
	SumServiceOrders(ctx context.Context, orderID int64) (decimal.Decimal, error)
}, order database.Order, delta decimal.Decimal) error {
	if !order.CleanersPart.Valid || !delta.IsNegative() {
		return nil
	}
	total, err := store.SumServiceOrders(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("sum service lines: %w", err)
	}
	if order.CleanersPart.Decimal.GreaterThan(total.Add(delta)) {
		return ErrInvalidCleanersPart
	}
	return nil
}

func orderEvent(o database.Order) notify.Event {
	return notify.Event{
		OrderID:   o.ID,
		ManagerID: o.ManagerID,
		Address:   o.Address,
		WorkStart: o.WorkStart,
	}
}
