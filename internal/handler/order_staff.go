package handler

import (
	"context"
	"net/http"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/policy"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// AssignmentServicer is satisfied by *service.AssignmentService.
type AssignmentServicer interface {
	EligibleStaff(ctx context.Context, orderID int64) ([]database.Staff, error)
	AddStaffBatch(ctx context.Context, orderID int64, reqs []service.StaffRequest) ([]database.StaffOrder, error)
	RemoveStaff(ctx context.Context, orderID, staffOrderID int64) error
	SetBrigadier(ctx context.Context, orderID, staffOrderID int64) (database.StaffOrder, error)
}

// OrderStaffHandler manages who works on an order.
type OrderStaffHandler struct {
	svc    AssignmentServicer
	orders OrderGetter
}

func NewOrderStaffHandler(svc AssignmentServicer, orders OrderGetter) *OrderStaffHandler {
	return &OrderStaffHandler{svc: svc, orders: orders}
}

// RegisterRoutes expects to share the /orders sub-router with OrderHandler.
func (h *OrderStaffHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{id}/staff", func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager))
		r.Get("/", h.Eligible)
		r.Post("/", h.Add)
		r.Delete("/{soID}", h.Remove)
		r.Post("/{soID}/brigadier", h.SetBrigadier)
	})
}

type addStaffRequest struct {
	Staff []staffRequest `json:"staff" validate:"required,min=1,max=5,dive"`
}

// Eligible lists field staff who can still be put on the order.
func (h *OrderStaffHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.orders, policy.CanManageOrder)
	if !ok {
		return
	}
	staff, err := h.svc.EligibleStaff(r.Context(), order.ID)
	if err != nil {
		writeServiceError(w, err, "list eligible staff")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(staff))
}

// Add assigns a batch of staff; either all of them land or none.
func (h *OrderStaffHandler) Add(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.orders, policy.CanManageOrder)
	if !ok {
		return
	}
	var req addStaffRequest
	if !decodeValid(w, r, &req) {
		return
	}

	reqs := make([]service.StaffRequest, len(req.Staff))
	for i, s := range req.Staff {
		reqs[i] = service.StaffRequest{StaffID: s.StaffID, IsBrigadier: s.IsBrigadier}
	}
	added, err := h.svc.AddStaffBatch(r.Context(), order.ID, reqs)
	if err != nil {
		writeServiceError(w, err, "assign staff")
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (h *OrderStaffHandler) Remove(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.orders, policy.CanManageOrder)
	if !ok {
		return
	}
	soID, ok := pathID(w, r, "soID")
	if !ok {
		return
	}
	if err := h.svc.RemoveStaff(r.Context(), order.ID, soID); err != nil {
		writeServiceError(w, err, "remove staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderStaffHandler) SetBrigadier(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.orders, policy.CanManageOrder)
	if !ok {
		return
	}
	soID, ok := pathID(w, r, "soID")
	if !ok {
		return
	}
	so, err := h.svc.SetBrigadier(r.Context(), order.ID, soID)
	if err != nil {
		writeServiceError(w, err, "set brigadier")
		return
	}
	writeJSON(w, http.StatusOK, so)
}
