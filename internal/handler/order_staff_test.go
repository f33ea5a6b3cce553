package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/handler"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAssignmentService struct {
	eligible  []database.Staff
	batches   [][]service.StaffRequest
	batchErr  error
	removed   []int64
	brigadier int64
}

func (m *mockAssignmentService) EligibleStaff(_ context.Context, orderID int64) ([]database.Staff, error) {
	return m.eligible, nil
}

func (m *mockAssignmentService) AddStaffBatch(_ context.Context, orderID int64, reqs []service.StaffRequest) ([]database.StaffOrder, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.batches = append(m.batches, reqs)
	out := make([]database.StaffOrder, len(reqs))
	for i, r := range reqs {
		out[i] = database.StaffOrder{ID: int64(100 + i), OrderID: orderID, StaffID: r.StaffID, IsBrigadier: r.IsBrigadier}
	}
	return out, nil
}

func (m *mockAssignmentService) RemoveStaff(_ context.Context, _, staffOrderID int64) error {
	if staffOrderID == 404 {
		return service.ErrAssignmentNotFound
	}
	m.removed = append(m.removed, staffOrderID)
	return nil
}

func (m *mockAssignmentService) SetBrigadier(_ context.Context, orderID, staffOrderID int64) (database.StaffOrder, error) {
	m.brigadier = staffOrderID
	return database.StaffOrder{ID: staffOrderID, OrderID: orderID, IsBrigadier: true}, nil
}

func orderStaffRouter(svc handler.AssignmentServicer, orders handler.OrderGetter) http.Handler {
	h := handler.NewOrderStaffHandler(svc, orders)
	return authRouter(func(r chi.Router) {
		r.Route("/orders", h.RegisterRoutes)
	})
}

func TestOrderStaffHandler_Eligible(t *testing.T) {
	svc := &mockAssignmentService{}
	router := orderStaffRouter(svc, storeWithOrder(testOrder(7)))

	rr := doJSON(t, router, http.MethodGet, "/orders/7/staff", tokenFor(t, managerID, enum.RoleManager), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "[]\n", rr.Body.String())

	svc.eligible = []database.Staff{{ID: 3, Role: enum.RoleCleaner}}
	rr = doJSON(t, router, http.MethodGet, "/orders/7/staff", tokenFor(t, adminID, enum.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeList(t, rr), 1)

	rr = doJSON(t, router, http.MethodGet, "/orders/7/staff", tokenFor(t, cleanerID, enum.RoleCleaner), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/orders/7/staff", tokenFor(t, otherMgrID, enum.RoleManager), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestOrderStaffHandler_Add(t *testing.T) {
	svc := &mockAssignmentService{}
	router := orderStaffRouter(svc, storeWithOrder(testOrder(7)))
	token := tokenFor(t, managerID, enum.RoleManager)

	body := map[string]interface{}{"staff": []map[string]interface{}{
		{"staff_id": 3, "is_brigadier": true},
		{"staff_id": 4},
	}}
	rr := doJSON(t, router, http.MethodPost, "/orders/7/staff", token, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, svc.batches, 1)
	assert.Equal(t, []service.StaffRequest{{StaffID: 3, IsBrigadier: true}, {StaffID: 4}}, svc.batches[0])
	assert.Len(t, decodeList(t, rr), 2)

	tooMany := make([]map[string]interface{}, 6)
	for i := range tooMany {
		tooMany[i] = map[string]interface{}{"staff_id": i + 1}
	}
	rr = doJSON(t, router, http.MethodPost, "/orders/7/staff", token, map[string]interface{}{"staff": tooMany})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/orders/7/staff", token, map[string]interface{}{"staff": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	svc.batchErr = service.ErrStaffNotEligible
	rr = doJSON(t, router, http.MethodPost, "/orders/7/staff", token, body)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestOrderStaffHandler_RemoveAndBrigadier(t *testing.T) {
	svc := &mockAssignmentService{}
	router := orderStaffRouter(svc, storeWithOrder(testOrder(7)))
	token := tokenFor(t, managerID, enum.RoleManager)

	rr := doJSON(t, router, http.MethodDelete, "/orders/7/staff/12", token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []int64{12}, svc.removed)

	rr = doJSON(t, router, http.MethodDelete, "/orders/7/staff/404", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/orders/7/staff/13/brigadier", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(13), svc.brigadier)
	assert.Equal(t, true, decodeResponse(t, rr)["is_brigadier"])
}
