package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/notify"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockPool implements Pool. The store factory ignores the DBTX it is given,
// so the query methods are never reached.
type mockPool struct {
	tx       *mockTx
	beginErr error
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}
func (m *mockPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}

// recordingNotifier keeps every event it is handed.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// fakeStore is an in-memory stand-in for *database.Queries covering every
// store interface in this package. Guarded updates return pgx.ErrNoRows the
// way the SQL does.
type fakeStore struct {
	nextID int64

	orders        map[int64]database.Order
	staff         map[int64]database.Staff
	clients       map[int64]database.Client
	services      map[int64]database.Service
	extras        map[int64]database.ExtraService
	inventory     map[int64]database.Inventory
	cleansers     map[int64]database.Cleanser
	staffOrders   []database.StaffOrder
	serviceOrders []database.ServiceOrder
	reports       []database.ManagerReport
	cash          []database.CashManager
	photos        []database.ForemanPhoto
	updates       []database.ForemanOrderUpdate
	foreman       []database.ForemanReport

	// fail makes the named method return the error.
	fail map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:    100,
		orders:    map[int64]database.Order{},
		staff:     map[int64]database.Staff{},
		clients:   map[int64]database.Client{},
		services:  map[int64]database.Service{},
		extras:    map[int64]database.ExtraService{},
		inventory: map[int64]database.Inventory{},
		cleansers: map[int64]database.Cleanser{},
		fail:      map[string]error{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addStaff(id int64, role string, schedule ...int16) database.Staff {
	s := database.Staff{
		ID:        id,
		FirstName: "Staff",
		LastName:  fmt.Sprintf("#%d", id),
		Role:      role,
		IsActive:  true,
		Schedule:  schedule,
	}
	f.staff[id] = s
	return s
}

func (f *fakeStore) addOrder(o database.Order) database.Order {
	if o.ID == 0 {
		o.ID = f.id()
	}
	if o.Status == "" {
		o.Status = enum.OrderStatusNew
	}
	if o.WorkEnd.IsZero() {
		o.WorkEnd = WorkEnd(o.WorkStart, o.CleaningTime)
	}
	f.orders[o.ID] = o
	return o
}

func (f *fakeStore) assign(orderID, staffID int64, brigadier, accepted bool) database.StaffOrder {
	so := database.StaffOrder{ID: f.id(), OrderID: orderID, StaffID: staffID, IsBrigadier: brigadier, IsAccept: accepted}
	f.staffOrders = append(f.staffOrders, so)
	return so
}

func (f *fakeStore) salaryOf(id int64) decimal.Decimal { return f.staff[id].SalaryBalance }

// --- orders ---

func (f *fakeStore) GetOrder(ctx context.Context, id int64) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return o, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if err := f.fail["CreateOrder"]; err != nil {
		return database.Order{}, err
	}
	return f.addOrder(database.Order{
		WorkStart:    arg.WorkStart,
		CleaningTime: arg.CleaningTime,
		WorkEnd:      arg.WorkEnd,
		ClientID:     arg.ClientID,
		Address:      arg.Address,
		ObjectTypeID: arg.ObjectTypeID,
		ManagerID:    arg.ManagerID,
		PaymentType:  arg.PaymentType,
		Description:  arg.Description,
	}), nil
}

func (f *fakeStore) CancelOrder(ctx context.Context, id int64) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || enum.IsTerminalStatus(o.Status) {
		return o, pgx.ErrNoRows
	}
	o.Status = enum.OrderStatusCanceled
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) FinishOrder(ctx context.Context, id int64, totalCost decimal.Decimal) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || enum.IsTerminalStatus(o.Status) {
		return o, pgx.ErrNoRows
	}
	o.Status = enum.OrderStatusFinished
	o.TotalCost = decimal.NewNullDecimal(totalCost)
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) StartOrderWork(ctx context.Context, id int64) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.Status != enum.OrderStatusNew {
		return o, pgx.ErrNoRows
	}
	o.Status = enum.OrderStatusInProgress
	o.WorkStartedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) EndOrderWork(ctx context.Context, id int64) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.Status != enum.OrderStatusInProgress || o.WorkFinishedAt.Valid {
		return o, pgx.ErrNoRows
	}
	o.WorkFinishedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) SetCleanersPart(ctx context.Context, id int64, amount decimal.Decimal) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || enum.IsTerminalStatus(o.Status) {
		return o, pgx.ErrNoRows
	}
	o.CleanersPart = decimal.NewNullDecimal(amount)
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) SumServiceOrders(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, so := range f.serviceOrders {
		if so.OrderID == orderID {
			sum = sum.Add(so.Total)
		}
	}
	return sum, nil
}

// --- catalog and consumables ---

func (f *fakeStore) GetClient(ctx context.Context, id int64) (database.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return c, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) GetService(ctx context.Context, id int64) (database.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return s, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) GetExtraService(ctx context.Context, id int64) (database.ExtraService, error) {
	e, ok := f.extras[id]
	if !ok {
		return e, pgx.ErrNoRows
	}
	return e, nil
}

func (f *fakeStore) GetInventory(ctx context.Context, id int64) (database.Inventory, error) {
	i, ok := f.inventory[id]
	if !ok {
		return i, pgx.ErrNoRows
	}
	return i, nil
}

func (f *fakeStore) CreateInventoryInOrder(ctx context.Context, orderID, inventoryID int64, amount int32) (database.InventoryInOrder, error) {
	return database.InventoryInOrder{ID: f.id(), OrderID: orderID, InventoryID: inventoryID, Amount: amount}, nil
}

func (f *fakeStore) ConsumeCleanser(ctx context.Context, id int64, amount int32) (database.Cleanser, error) {
	c, ok := f.cleansers[id]
	if !ok || c.Amount < amount {
		return c, pgx.ErrNoRows
	}
	c.Amount -= amount
	f.cleansers[id] = c
	return c, nil
}

func (f *fakeStore) CreateCleanserInOrder(ctx context.Context, orderID, cleanserID int64, amount int32) (database.CleanserInOrder, error) {
	return database.CleanserInOrder{ID: f.id(), OrderID: orderID, CleanserID: cleanserID, Amount: amount}, nil
}

// --- service lines ---

func (f *fakeStore) CreateServiceOrder(ctx context.Context, arg database.CreateServiceOrderParams) (database.ServiceOrder, error) {
	so := database.ServiceOrder{
		ID:             f.id(),
		OrderID:        arg.OrderID,
		ServiceID:      arg.ServiceID,
		ExtraServiceID: arg.ExtraServiceID,
		Amount:         arg.Amount,
		Rate:           arg.Rate,
		Total:          arg.Total,
	}
	f.serviceOrders = append(f.serviceOrders, so)
	return so, nil
}

func (f *fakeStore) GetServiceOrder(ctx context.Context, id, orderID int64) (database.ServiceOrder, error) {
	for _, so := range f.serviceOrders {
		if so.ID == id && so.OrderID == orderID {
			return so, nil
		}
	}
	return database.ServiceOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) UpdateServiceOrder(ctx context.Context, arg database.UpdateServiceOrderParams) (database.ServiceOrder, error) {
	for i, so := range f.serviceOrders {
		if so.ID == arg.ID && so.OrderID == arg.OrderID {
			so.Amount, so.Rate, so.Total = arg.Amount, arg.Rate, arg.Total
			f.serviceOrders[i] = so
			return so, nil
		}
	}
	return database.ServiceOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) DeleteServiceOrder(ctx context.Context, id, orderID int64) (int64, error) {
	for i, so := range f.serviceOrders {
		if so.ID == id && so.OrderID == orderID {
			f.serviceOrders = append(f.serviceOrders[:i], f.serviceOrders[i+1:]...)
			return id, nil
		}
	}
	return 0, pgx.ErrNoRows
}

// --- staff and assignments ---

func (f *fakeStore) GetStaffForUpdate(ctx context.Context, id int64) (database.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return s, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) ListEligibleStaff(ctx context.Context, arg database.ListEligibleStaffParams) ([]database.Staff, error) {
	var out []database.Staff
	for _, s := range f.staff {
		if !enum.IsFieldRole(s.Role) || !s.IsActive || s.BlackList {
			continue
		}
		worksThatDay := false
		for _, d := range s.Schedule {
			if d == arg.Weekday {
				worksThatDay = true
			}
		}
		if !worksThatDay {
			continue
		}
		if _, err := f.GetStaffOrderByOrderAndStaff(ctx, arg.OrderID, s.ID); err == nil {
			continue
		}
		n, _ := f.CountOverlappingAssignments(ctx, database.CountOverlappingAssignmentsParams{
			StaffID: s.ID, OrderID: arg.OrderID, WorkStart: arg.WorkStart, WorkEnd: arg.WorkEnd,
		})
		if n > 0 {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) CountOverlappingAssignments(ctx context.Context, arg database.CountOverlappingAssignmentsParams) (int64, error) {
	var n int64
	for _, so := range f.staffOrders {
		if so.StaffID != arg.StaffID || so.OrderID == arg.OrderID {
			continue
		}
		o := f.orders[so.OrderID]
		if o.Status == enum.OrderStatusCanceled {
			continue
		}
		if Overlaps(o.WorkStart, o.WorkEnd, arg.WorkStart, arg.WorkEnd) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) AddStaffSalary(ctx context.Context, id int64, amount decimal.Decimal) (database.Staff, error) {
	if err := f.fail["AddStaffSalary"]; err != nil {
		return database.Staff{}, err
	}
	s, ok := f.staff[id]
	if !ok {
		return s, pgx.ErrNoRows
	}
	s.SalaryBalance = s.SalaryBalance.Add(amount)
	f.staff[id] = s
	return s, nil
}

func (f *fakeStore) AddStaffCash(ctx context.Context, id int64, amount decimal.Decimal) (database.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return s, pgx.ErrNoRows
	}
	s.CashBalance = s.CashBalance.Add(amount)
	f.staff[id] = s
	return s, nil
}

func (f *fakeStore) CreateStaffOrder(ctx context.Context, arg database.CreateStaffOrderParams) (database.StaffOrder, error) {
	return f.assign(arg.OrderID, arg.StaffID, arg.IsBrigadier, false), nil
}

func (f *fakeStore) GetStaffOrder(ctx context.Context, id int64) (database.StaffOrder, error) {
	for _, so := range f.staffOrders {
		if so.ID == id {
			return so, nil
		}
	}
	return database.StaffOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) GetStaffOrderByOrderAndStaff(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error) {
	for _, so := range f.staffOrders {
		if so.OrderID == orderID && so.StaffID == staffID {
			return so, nil
		}
	}
	return database.StaffOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) ListStaffOrdersByOrder(ctx context.Context, orderID int64) ([]database.StaffOrder, error) {
	var out []database.StaffOrder
	for _, so := range f.staffOrders {
		if so.OrderID == orderID {
			out = append(out, so)
		}
	}
	return out, nil
}

func (f *fakeStore) ListStaffOrdersByStaff(ctx context.Context, staffID int64) ([]database.StaffOrder, error) {
	var out []database.StaffOrder
	for _, so := range f.staffOrders {
		if so.StaffID == staffID {
			out = append(out, so)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteStaffOrder(ctx context.Context, id int64) (database.StaffOrder, error) {
	for i, so := range f.staffOrders {
		if so.ID == id {
			f.staffOrders = append(f.staffOrders[:i], f.staffOrders[i+1:]...)
			return so, nil
		}
	}
	return database.StaffOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) ClearBrigadier(ctx context.Context, orderID int64) error {
	for i := range f.staffOrders {
		if f.staffOrders[i].OrderID == orderID {
			f.staffOrders[i].IsBrigadier = false
		}
	}
	return nil
}

func (f *fakeStore) SetBrigadier(ctx context.Context, id int64) (database.StaffOrder, error) {
	for i := range f.staffOrders {
		if f.staffOrders[i].ID == id {
			f.staffOrders[i].IsBrigadier = true
			return f.staffOrders[i], nil
		}
	}
	return database.StaffOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) AcceptStaffOrder(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error) {
	for i, so := range f.staffOrders {
		if so.OrderID == orderID && so.StaffID == staffID {
			f.staffOrders[i].IsAccept = true
			return f.staffOrders[i], nil
		}
	}
	return database.StaffOrder{}, pgx.ErrNoRows
}

func (f *fakeStore) MarkInPlace(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error) {
	for i, so := range f.staffOrders {
		if so.OrderID == orderID && so.StaffID == staffID {
			f.staffOrders[i].InPlace = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return f.staffOrders[i], nil
		}
	}
	return database.StaffOrder{}, pgx.ErrNoRows
}

// --- reports ---

func (f *fakeStore) CountManagerReportsByOrder(ctx context.Context, orderID int64) (int64, error) {
	var n int64
	for _, r := range f.reports {
		if r.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateManagerReport(ctx context.Context, arg database.CreateManagerReportParams) (database.ManagerReport, error) {
	if err := f.fail["CreateManagerReport"]; err != nil {
		return database.ManagerReport{}, err
	}
	r := database.ManagerReport{
		ID:                 f.id(),
		OrderID:            arg.OrderID,
		CleanerID:          arg.CleanerID,
		Salary:             arg.Salary,
		Bonus:              arg.Bonus,
		BonusDescription:   arg.BonusDescription,
		Forfeit:            arg.Forfeit,
		ForfeitDescription: arg.ForfeitDescription,
		CreatedAt:          time.Now(),
	}
	f.reports = append(f.reports, r)
	return r, nil
}

func (f *fakeStore) ListManagerReports(ctx context.Context, arg database.ListManagerReportsParams) ([]database.ManagerReportRow, error) {
	var out []database.ManagerReportRow
	for _, r := range f.reports {
		if arg.StartDate.Valid && r.CreatedAt.Before(arg.StartDate.Time) {
			continue
		}
		if arg.EndDate.Valid && !r.CreatedAt.Before(arg.EndDate.Time) {
			continue
		}
		out = append(out, database.ManagerReportRow{
			ManagerReport: r,
			CleanerName:   f.staff[r.CleanerID].FullName(),
			OrderAddress:  f.orders[r.OrderID].Address,
		})
	}
	return out, nil
}

func (f *fakeStore) CreateCashManager(ctx context.Context, staffID, orderID int64, amount decimal.Decimal) (database.CashManager, error) {
	c := database.CashManager{ID: f.id(), StaffID: staffID, OrderID: orderID, Amount: amount}
	f.cash = append(f.cash, c)
	return c, nil
}

// --- foreman ---

func (f *fakeStore) ListForemanPhotosByOrder(ctx context.Context, orderID int64) ([]database.ForemanPhoto, error) {
	var out []database.ForemanPhoto
	for _, p := range f.photos {
		so, _ := f.GetStaffOrder(ctx, p.StaffOrderID)
		if so.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateForemanReport(ctx context.Context, arg database.CreateForemanReportParams) (database.ForemanReport, error) {
	r := database.ForemanReport{ID: f.id(), StaffOrderID: arg.StaffOrderID, Expenses: arg.Expenses, StartAt: arg.StartAt, EndAt: arg.EndAt}
	f.foreman = append(f.foreman, r)
	return r, nil
}

func (f *fakeStore) CreateForemanPhoto(ctx context.Context, staffOrderID int64, imagePath string, isAfter bool) (database.ForemanPhoto, error) {
	if err := f.fail["CreateForemanPhoto"]; err != nil {
		return database.ForemanPhoto{}, err
	}
	p := database.ForemanPhoto{ID: f.id(), StaffOrderID: staffOrderID, ImagePath: imagePath, IsAfter: isAfter}
	f.photos = append(f.photos, p)
	return p, nil
}

func (f *fakeStore) CreateForemanOrderUpdate(ctx context.Context, arg database.CreateForemanOrderUpdateParams) (database.ForemanOrderUpdate, error) {
	u := database.ForemanOrderUpdate{
		ID:             f.id(),
		OrderID:        arg.OrderID,
		StaffID:        arg.StaffID,
		ServiceID:      arg.ServiceID,
		ExtraServiceID: arg.ExtraServiceID,
		Amount:         arg.Amount,
	}
	f.updates = append(f.updates, u)
	return u, nil
}

// --- Test helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// monday10 is Monday 2024-06-03 10:00 UTC.
var monday10 = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func newTestPool() (*mockPool, *mockTx) {
	tx := &mockTx{}
	return &mockPool{tx: tx}, tx
}

var (
	_ OrderStore      = (*fakeStore)(nil)
	_ AssignmentStore = (*fakeStore)(nil)
	_ SettlementStore = (*fakeStore)(nil)
	_ CrewStore       = (*fakeStore)(nil)
	_ Pool            = (*mockPool)(nil)
)
