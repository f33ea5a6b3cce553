package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/media"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crewFixture seeds an order with brigadier 10 (accepted) and cleaner 11
// (not yet accepted).
func crewFixture(t *testing.T) (*CrewService, *fakeStore, *media.Store, database.Order) {
	t.Helper()
	store := newOrderFixture()
	o := store.addOrder(database.Order{WorkStart: monday10, CleaningTime: 120, ManagerID: 2})
	store.assign(o.ID, 10, true, true)
	store.assign(o.ID, 11, false, false)
	images := media.NewStore(t.TempDir())
	return NewCrewService(store, images), store, images, o
}

func TestCrew_AcceptAndInPlace(t *testing.T) {
	svc, _, _, o := crewFixture(t)
	ctx := context.Background()

	_, err := svc.InPlace(ctx, o.ID, 11)
	assert.ErrorIs(t, err, ErrNotAccepted)

	so, err := svc.Accept(ctx, o.ID, 11)
	require.NoError(t, err)
	assert.True(t, so.IsAccept)

	so, err = svc.InPlace(ctx, o.ID, 11)
	require.NoError(t, err)
	assert.True(t, so.InPlace.Valid)

	_, err = svc.Accept(ctx, o.ID, 12)
	assert.ErrorIs(t, err, ErrNotAssigned)

	_, err = svc.Accept(ctx, 999, 11)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCrew_ClosedOrder(t *testing.T) {
	svc, store, _, o := crewFixture(t)
	o.Status = enum.OrderStatusCanceled
	store.orders[o.ID] = o

	_, err := svc.Accept(context.Background(), o.ID, 11)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestCrew_WorkLifecycle(t *testing.T) {
	svc, _, _, o := crewFixture(t)
	ctx := context.Background()

	_, err := svc.StartWork(ctx, o.ID, 11)
	assert.ErrorIs(t, err, ErrNotBrigadier)

	_, err = svc.EndWork(ctx, o.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	started, err := svc.StartWork(ctx, o.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusInProgress, started.Status)
	assert.True(t, started.WorkStartedAt.Valid)

	_, err = svc.StartWork(ctx, o.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ended, err := svc.EndWork(ctx, o.ID, 10)
	require.NoError(t, err)
	assert.True(t, ended.WorkFinishedAt.Valid)
	assert.Equal(t, enum.OrderStatusInProgress, ended.Status)

	_, err = svc.EndWork(ctx, o.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCrew_SubmitForemanReport(t *testing.T) {
	svc, store, _, o := crewFixture(t)
	ctx := context.Background()

	_, err := svc.SubmitForemanReport(ctx, o.ID, 10, ForemanReportRequest{StartAt: monday10, EndAt: monday10})
	assert.ErrorIs(t, err, ErrInvalidWorkWindow)

	neg := dec("-1")
	_, err = svc.SubmitForemanReport(ctx, o.ID, 10, ForemanReportRequest{Expenses: &neg, StartAt: monday10, EndAt: monday10.Add(1)})
	assert.ErrorIs(t, err, ErrNegativeMoney)

	_, err = svc.SubmitForemanReport(ctx, o.ID, 11, ForemanReportRequest{StartAt: monday10, EndAt: monday10.Add(1)})
	assert.ErrorIs(t, err, ErrNotBrigadier)

	spent := dec("150")
	r, err := svc.SubmitForemanReport(ctx, o.ID, 10, ForemanReportRequest{Expenses: &spent, StartAt: monday10, EndAt: monday10.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.True(t, r.Expenses.Valid)
	assert.True(t, r.Expenses.Decimal.Equal(decimal.NewFromInt(150)))
	assert.Len(t, store.foreman, 1)
}

func TestCrew_AddPhoto(t *testing.T) {
	svc, store, images, o := crewFixture(t)
	ctx := context.Background()

	p, err := svc.AddPhoto(ctx, o.ID, 10, true, "after.jpg", strings.NewReader("img"))
	require.NoError(t, err)
	assert.True(t, p.IsAfter)
	assert.True(t, strings.HasPrefix(p.ImagePath, "orders/"))
	_, err = os.Stat(filepath.Join(images.Root, p.ImagePath))
	assert.NoError(t, err)

	_, err = svc.AddPhoto(ctx, o.ID, 10, false, "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = svc.AddPhoto(ctx, o.ID, 11, false, "before.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotBrigadier)

	store.fail["CreateForemanPhoto"] = errors.New("insert failed")
	_, err = svc.AddPhoto(ctx, o.ID, 10, false, "before.jpg", strings.NewReader("x"))
	assert.Error(t, err)
	entries, _ := os.ReadDir(filepath.Join(images.Root, "orders", fmt.Sprint(o.ID)))
	assert.Len(t, entries, 1, "file of the failed insert is removed")
}

func TestCrew_ProposeUpdate(t *testing.T) {
	svc, store, _, o := crewFixture(t)
	ctx := context.Background()

	_, err := svc.ProposeUpdate(ctx, o.ID, 10, OrderUpdateRequest{ServiceID: 1, ExtraServiceID: 2, Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidLine)

	_, err = svc.ProposeUpdate(ctx, o.ID, 10, OrderUpdateRequest{ServiceID: 1})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	u, err := svc.ProposeUpdate(ctx, o.ID, 10, OrderUpdateRequest{ExtraServiceID: 2, Amount: 3})
	require.NoError(t, err)
	assert.False(t, u.ServiceID.Valid)
	assert.Equal(t, int64(2), u.ExtraServiceID.Int64)
	assert.Len(t, store.updates, 1)
}

func TestCrew_MyOrders(t *testing.T) {
	svc, store, _, o := crewFixture(t)
	other := store.addOrder(database.Order{WorkStart: monday10.AddDate(0, 0, 1), CleaningTime: 60})
	store.assign(other.ID, 11, false, false)

	mine, err := svc.MyOrders(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, o.ID, mine[0].Order.ID)
	assert.Equal(t, other.ID, mine[1].Order.ID)

	none, err := svc.MyOrders(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
