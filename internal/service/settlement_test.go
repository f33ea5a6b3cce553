package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettlementService(store *fakeStore) (*SettlementService, *mockTx, *recordingNotifier) {
	pool, tx := newTestPool()
	n := &recordingNotifier{}
	newStore := func(db database.DBTX) SettlementStore { return store }
	export := func(w io.Writer, rows []database.ManagerReportRow) error {
		_, err := fmt.Fprintf(w, "%d rows", len(rows))
		return err
	}
	return NewSettlementService(pool, newStore, n, export), tx, n
}

// readyOrder seeds an order worth 2500 with a cleaners' part of 1000 and an
// accepted brigadier (10) and cleaner (11).
func readyOrder() (*fakeStore, database.Order) {
	store := newOrderFixture()
	o := store.addOrder(database.Order{
		WorkStart:    monday10,
		CleaningTime: 180,
		ManagerID:    2,
		Address:      "Chui 100",
		CleanersPart: decimal.NewNullDecimal(dec("1000")),
	})
	store.serviceOrders = append(store.serviceOrders, database.ServiceOrder{ID: 1, OrderID: o.ID, Amount: 2, Rate: dec("1.25"), Total: dec("2500")})
	store.assign(o.ID, 10, true, true)
	store.assign(o.ID, 11, false, true)
	return store, o
}

func defaultEntries() []ReportEntry {
	return []ReportEntry{
		{CleanerID: 10, Salary: dec("500"), Bonus: dec("100"), BonusDescription: "windows", Forfeit: dec("50"), ForfeitDescription: "late"},
		{CleanerID: 11, Salary: dec("500")},
	}
}

func TestReportEntryCredit(t *testing.T) {
	e := ReportEntry{Salary: dec("500"), Bonus: dec("100"), Forfeit: dec("50")}
	assert.True(t, e.Credit().Equal(dec("550")))
}

func TestPrepareReport(t *testing.T) {
	store, o := readyOrder()
	store.photos = []database.ForemanPhoto{
		{ID: 1, StaffOrderID: store.staffOrders[0].ID, ImagePath: "orders/1/a.jpg"},
		{ID: 2, StaffOrderID: store.staffOrders[0].ID, ImagePath: "orders/1/b.jpg", IsAfter: true},
	}
	svc, _, _ := newTestSettlementService(store)

	draft, err := svc.PrepareReport(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, draft.Total.Equal(dec("2500")))
	require.Len(t, draft.Entries, 2)
	for _, e := range draft.Entries {
		assert.True(t, e.Salary.Equal(dec("500")))
		assert.Equal(t, e.StaffID == 10, e.ShowBonus)
	}
	assert.Len(t, draft.PhotosBefore, 1)
	assert.Len(t, draft.PhotosAfter, 1)
}

func TestPrepareReport_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeStore, database.Order) int64
		want   error
	}{
		{"unknown order", func(s *fakeStore, o database.Order) int64 { return 999 }, ErrOrderNotFound},
		{"finished", func(s *fakeStore, o database.Order) int64 {
			o.Status = enum.OrderStatusFinished
			s.orders[o.ID] = o
			return o.ID
		}, ErrOrderClosed},
		{"report exists", func(s *fakeStore, o database.Order) int64 {
			s.reports = append(s.reports, database.ManagerReport{ID: 1, OrderID: o.ID})
			return o.ID
		}, ErrReportExists},
		{"not accepted", func(s *fakeStore, o database.Order) int64 {
			s.staffOrders[1].IsAccept = false
			return o.ID
		}, ErrNotAllAccepted},
		{"no crew", func(s *fakeStore, o database.Order) int64 {
			s.staffOrders = nil
			return o.ID
		}, ErrNotAllAccepted},
		{"cleaners part unset", func(s *fakeStore, o database.Order) int64 {
			o.CleanersPart = decimal.NullDecimal{}
			s.orders[o.ID] = o
			return o.ID
		}, ErrCleanersPartNotSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, o := readyOrder()
			id := tt.mutate(store, o)
			svc, _, _ := newTestSettlementService(store)
			_, err := svc.PrepareReport(context.Background(), id)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSettle(t *testing.T) {
	store, o := readyOrder()
	svc, tx, n := newTestSettlementService(store)

	res, err := svc.Settle(context.Background(), o.ID, defaultEntries())
	require.NoError(t, err)
	assert.True(t, tx.committed)

	assert.Equal(t, enum.OrderStatusFinished, res.Order.Status)
	assert.True(t, res.Order.TotalCost.Decimal.Equal(dec("2500")))
	assert.Len(t, res.Reports, 2)
	assert.True(t, res.Cash.Amount.Equal(dec("2500")))
	assert.Equal(t, int64(2), res.Cash.StaffID)

	assert.True(t, store.salaryOf(10).Equal(dec("550")), store.salaryOf(10).String())
	assert.True(t, store.salaryOf(11).Equal(dec("500")))
	assert.True(t, store.staff[2].CashBalance.Equal(dec("2500")))

	assert.Equal(t, "windows", res.Reports[0].BonusDescription.String)
	assert.False(t, res.Reports[1].BonusDescription.Valid)

	require.Equal(t, []string{enum.EventOrderFinished}, n.types())
	assert.ElementsMatch(t, []int64{10, 11, 2}, n.events[0].Recipients())
}

func TestSettle_CreditsOrderManager(t *testing.T) {
	store, o := readyOrder()
	store.addStaff(1, enum.RoleAdmin)
	store.addStaff(6, enum.RoleManager)
	o.ManagerID = 6
	store.orders[o.ID] = o
	svc, _, _ := newTestSettlementService(store)

	res, err := svc.Settle(context.Background(), o.ID, defaultEntries())
	require.NoError(t, err)

	assert.Equal(t, int64(6), res.Cash.StaffID)
	assert.True(t, store.staff[6].CashBalance.Equal(dec("2500")))
	assert.True(t, store.staff[1].CashBalance.IsZero())
	assert.True(t, store.staff[2].CashBalance.IsZero())
	require.Len(t, store.cash, 1)
	assert.Equal(t, int64(6), store.cash[0].StaffID)
}

func TestSettle_ForfeitOnCleaner(t *testing.T) {
	store, o := readyOrder()
	svc, _, _ := newTestSettlementService(store)

	entries := defaultEntries()
	entries[1].Forfeit = dec("50")
	entries[1].ForfeitDescription = "broke a vase"
	res, err := svc.Settle(context.Background(), o.ID, entries)
	require.NoError(t, err)

	assert.True(t, store.salaryOf(11).Equal(dec("450")), store.salaryOf(11).String())
	assert.True(t, res.Reports[1].Forfeit.Equal(dec("50")))
	assert.Equal(t, "broke a vase", res.Reports[1].ForfeitDescription.String)
}

func TestSettle_Twice(t *testing.T) {
	store, o := readyOrder()
	svc, _, _ := newTestSettlementService(store)

	_, err := svc.Settle(context.Background(), o.ID, defaultEntries())
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), o.ID, defaultEntries())
	assert.ErrorIs(t, err, ErrOrderClosed)
	assert.Len(t, store.reports, 2)
	assert.Len(t, store.cash, 1)
	assert.True(t, store.salaryOf(11).Equal(dec("500")))
}

func TestSettle_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		entries func() []ReportEntry
		want    error
	}{
		{"salary cap", func() []ReportEntry {
			e := defaultEntries()
			e[0].Salary = dec("600")
			return e
		}, ErrSalaryCapExceeded},
		{"bonus for cleaner", func() []ReportEntry {
			e := defaultEntries()
			e[1].Bonus = dec("10")
			return e
		}, ErrBonusNotAllowed},
		{"missing entry", func() []ReportEntry { return defaultEntries()[:1] }, ErrEntriesMismatch},
		{"unknown cleaner", func() []ReportEntry {
			e := defaultEntries()
			e[1].CleanerID = 99
			return e
		}, ErrUnknownCleaner},
		{"duplicate cleaner", func() []ReportEntry {
			e := defaultEntries()
			e[1].CleanerID = 10
			e[1].Bonus = dec("0")
			return e
		}, ErrDuplicateStaff},
		{"negative salary", func() []ReportEntry {
			e := defaultEntries()
			e[1].Salary = dec("-1")
			return e
		}, ErrNegativeMoney},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, o := readyOrder()
			svc, tx, n := newTestSettlementService(store)

			_, err := svc.Settle(context.Background(), o.ID, tt.entries())
			assert.ErrorIs(t, err, tt.want)

			assert.False(t, tx.committed)
			assert.Empty(t, store.reports)
			assert.Empty(t, store.cash)
			assert.True(t, store.salaryOf(10).IsZero())
			assert.True(t, store.salaryOf(11).IsZero())
			assert.Equal(t, enum.OrderStatusNew, store.orders[o.ID].Status)
			assert.Empty(t, n.events)
		})
	}
}

func TestSettle_StoreFailureAborts(t *testing.T) {
	store, o := readyOrder()
	store.fail["CreateManagerReport"] = errors.New("disk full")
	svc, tx, n := newTestSettlementService(store)

	_, err := svc.Settle(context.Background(), o.ID, defaultEntries())
	assert.ErrorContains(t, err, "disk full")
	assert.False(t, tx.committed)
	assert.Empty(t, n.events)
}

func TestListAndExportReports(t *testing.T) {
	store, o := readyOrder()
	svc, _, _ := newTestSettlementService(store)
	_, err := svc.Settle(context.Background(), o.ID, defaultEntries())
	require.NoError(t, err)

	rows, err := svc.ListReports(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Chui 100", rows[0].OrderAddress)

	future := time.Now().Add(time.Hour)
	rows, err = svc.ListReports(context.Background(), &future, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportReports(context.Background(), &buf, nil, nil))
	assert.Equal(t, "2 rows", buf.String())
}
