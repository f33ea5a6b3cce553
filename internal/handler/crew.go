package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CrewServicer is satisfied by *service.CrewService.
type CrewServicer interface {
	MyOrders(ctx context.Context, staffID int64) ([]service.MyOrder, error)
	Accept(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error)
	InPlace(ctx context.Context, orderID, staffID int64) (database.StaffOrder, error)
	StartWork(ctx context.Context, orderID, staffID int64) (database.Order, error)
	EndWork(ctx context.Context, orderID, staffID int64) (database.Order, error)
	SubmitForemanReport(ctx context.Context, orderID, staffID int64, req service.ForemanReportRequest) (database.ForemanReport, error)
	AddPhoto(ctx context.Context, orderID, staffID int64, isAfter bool, filename string, r io.Reader) (database.ForemanPhoto, error)
	ProposeUpdate(ctx context.Context, orderID, staffID int64, req service.OrderUpdateRequest) (database.ForemanOrderUpdate, error)
}

// CrewHandler serves the field staff's view of their own assignments.
type CrewHandler struct {
	svc CrewServicer
}

func NewCrewHandler(svc CrewServicer) *CrewHandler {
	return &CrewHandler{svc: svc}
}

// RegisterRoutes is expected to be mounted at /my/orders.
func (h *CrewHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.RoleBrigadier, enum.RoleCleaner))
	r.Get("/", h.List)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/in-place", h.InPlace)
	r.Post("/{id}/work-start", h.StartWork)
	r.Post("/{id}/work-end", h.EndWork)
	r.Post("/{id}/report", h.Report)
	r.Post("/{id}/photos", h.AddPhoto)
	r.Post("/{id}/updates", h.ProposeUpdate)
}

type foremanReportRequest struct {
	Expenses *decimal.Decimal `json:"expenses"`
	StartAt  time.Time        `json:"start_at" validate:"required"`
	EndAt    time.Time        `json:"end_at" validate:"required"`
}

type orderUpdateRequest struct {
	ServiceID      int64 `json:"service_id" validate:"gte=0"`
	ExtraServiceID int64 `json:"extra_service_id" validate:"gte=0"`
	Amount         int32 `json:"amount" validate:"gt=0"`
}

func (h *CrewHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	orders, err := h.svc.MyOrders(r.Context(), claims.StaffID)
	if err != nil {
		writeServiceError(w, err, "list my orders")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

func (h *CrewHandler) Accept(w http.ResponseWriter, r *http.Request) {
	crewAction(w, r, "accept order", h.svc.Accept)
}

func (h *CrewHandler) InPlace(w http.ResponseWriter, r *http.Request) {
	crewAction(w, r, "mark in place", h.svc.InPlace)
}

func (h *CrewHandler) StartWork(w http.ResponseWriter, r *http.Request) {
	crewAction(w, r, "start work", h.svc.StartWork)
}

func (h *CrewHandler) EndWork(w http.ResponseWriter, r *http.Request) {
	crewAction(w, r, "end work", h.svc.EndWork)
}

func (h *CrewHandler) Report(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req foremanReportRequest
	if !decodeValid(w, r, &req) {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	report, err := h.svc.SubmitForemanReport(r.Context(), orderID, claims.StaffID, service.ForemanReportRequest{
		Expenses: req.Expenses,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
	})
	if err != nil {
		writeServiceError(w, err, "submit foreman report")
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// AddPhoto takes a multipart "photo" file and an optional is_after flag.
func (h *CrewHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	file, filename, ok := formImage(w, r, "photo")
	if !ok {
		return
	}
	defer file.Close()

	isAfter := false
	if v := r.FormValue("is_after"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid is_after")
			return
		}
		isAfter = b
	}

	claims := middleware.ClaimsFromContext(r.Context())
	photo, err := h.svc.AddPhoto(r.Context(), orderID, claims.StaffID, isAfter, filename, file)
	if err != nil {
		writeServiceError(w, err, "add photo")
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

func (h *CrewHandler) ProposeUpdate(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req orderUpdateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	upd, err := h.svc.ProposeUpdate(r.Context(), orderID, claims.StaffID, service.OrderUpdateRequest{
		ServiceID:      req.ServiceID,
		ExtraServiceID: req.ExtraServiceID,
		Amount:         req.Amount,
	})
	if err != nil {
		writeServiceError(w, err, "propose order update")
		return
	}
	writeJSON(w, http.StatusCreated, upd)
}

// crewAction runs a body-less state change on the caller's assignment.
func crewAction[T any](w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, orderID, staffID int64) (T, error)) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	out, err := fn(r.Context(), orderID, claims.StaffID)
	if err != nil {
		writeServiceError(w, err, op)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
