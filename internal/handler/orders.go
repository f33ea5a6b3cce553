package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cleaning-crm/api/internal/auth"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/policy"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	CancelOrder(ctx context.Context, id int64) (database.Order, error)
	SetCleanersPart(ctx context.Context, id int64, amount decimal.Decimal) (database.Order, error)
	AddServiceLine(ctx context.Context, orderID int64, l service.ServiceLineRequest) (database.ServiceOrder, error)
	UpdateServiceLine(ctx context.Context, orderID, lineID int64, amount int32, rate decimal.Decimal) (database.ServiceOrder, error)
	DeleteServiceLine(ctx context.Context, orderID, lineID int64) error
}

// OrderGetter loads the order a permission check is made against.
type OrderGetter interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	OrderGetter
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListServiceOrdersByOrder(ctx context.Context, orderID int64) ([]database.ServiceOrder, error)
	ListStaffOrdersByOrder(ctx context.Context, orderID int64) ([]database.StaffOrder, error)
	ListInventoryInOrder(ctx context.Context, orderID int64) ([]database.InventoryInOrder, error)
	ListCleansersInOrder(ctx context.Context, orderID int64) ([]database.CleanserInOrder, error)
	GetForemanReportByOrder(ctx context.Context, orderID int64) (database.ForemanReport, error)
	ListForemanPhotosByOrder(ctx context.Context, orderID int64) ([]database.ForemanPhoto, error)
	ListForemanOrderUpdatesByOrder(ctx context.Context, orderID int64) ([]database.ForemanOrderUpdate, error)
	ListManagerReportsByOrder(ctx context.Context, orderID int64) ([]database.ManagerReport, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	loc   *time.Location
}

// NewOrderHandler reads plain dates in date filters as calendar days in loc.
func NewOrderHandler(svc OrderServicer, store OrderStore, loc *time.Location) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, loc: loc}
}

// RegisterRoutes registers order endpoints. Expected to be mounted at /orders
// behind Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	office := middleware.RequireRole(enum.RoleAdmin, enum.RoleManager)

	r.With(office).Get("/", h.List)
	r.With(office).Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.With(office).Post("/{id}/cancel", h.Cancel)
	r.With(office).Put("/{id}/cleaners-part", h.SetCleanersPart)
	r.With(office).Post("/{id}/services", h.AddServiceLine)
	r.With(office).Put("/{id}/services/{lineID}", h.UpdateServiceLine)
	r.With(office).Delete("/{id}/services/{lineID}", h.DeleteServiceLine)
}

// --- Request / Response types ---

type serviceLineRequest struct {
	ServiceID      int64           `json:"service_id" validate:"gte=0"`
	ExtraServiceID int64           `json:"extra_service_id" validate:"gte=0"`
	Amount         int32           `json:"amount"`
	Rate           decimal.Decimal `json:"rate"`
}

type staffRequest struct {
	StaffID     int64 `json:"staff_id" validate:"required,gt=0"`
	IsBrigadier bool  `json:"is_brigadier"`
}

type consumableRequest struct {
	ID     int64 `json:"id" validate:"required,gt=0"`
	Amount int32 `json:"amount"`
}

type createOrderRequest struct {
	ClientID     int64                `json:"client_id" validate:"required,gt=0"`
	Address      string               `json:"address" validate:"max=500"`
	WorkStart    time.Time            `json:"work_start"`
	CleaningTime int32                `json:"cleaning_time"`
	ObjectTypeID int64                `json:"object_type_id" validate:"gte=0"`
	PaymentType  string               `json:"payment_type"`
	Description  string               `json:"description"`
	Services     []serviceLineRequest `json:"services" validate:"dive"`
	Staff        []staffRequest       `json:"staff" validate:"max=5,dive"`
	Inventory    []consumableRequest  `json:"inventory" validate:"dive"`
	Cleansers    []consumableRequest  `json:"cleansers" validate:"dive"`
}

type cleanersPartRequest struct {
	CleanersPart decimal.Decimal `json:"cleaners_part"`
}

type updateLineRequest struct {
	Amount int32           `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

type orderDetailResponse struct {
	database.Order
	Total         decimal.Decimal               `json:"total"`
	Services      []database.ServiceOrder       `json:"services"`
	Staff         []database.StaffOrder         `json:"staff"`
	Inventory     []database.InventoryInOrder   `json:"inventory"`
	Cleansers     []database.CleanserInOrder    `json:"cleansers"`
	ForemanReport *database.ForemanReport       `json:"foreman_report,omitempty"`
	Photos        []database.ForemanPhoto       `json:"photos,omitempty"`
	Updates       []database.ForemanOrderUpdate `json:"updates,omitempty"`
	Reports       []database.ManagerReport      `json:"manager_reports,omitempty"`
}

func (req serviceLineRequest) toService() service.ServiceLineRequest {
	return service.ServiceLineRequest{
		ServiceID:      req.ServiceID,
		ExtraServiceID: req.ExtraServiceID,
		Amount:         req.Amount,
		Rate:           req.Rate,
	}
}

func toConsumables(in []consumableRequest) []service.ConsumableRequest {
	out := make([]service.ConsumableRequest, len(in))
	for i, c := range in {
		out[i] = service.ConsumableRequest{ID: c.ID, Amount: c.Amount}
	}
	return out
}

// --- Handlers ---

// Create places a new order owned by the calling manager.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if !decodeValid(w, r, &req) {
		return
	}

	svcReq := service.CreateOrderRequest{
		ManagerID:    claims.StaffID,
		ClientID:     req.ClientID,
		Address:      req.Address,
		WorkStart:    req.WorkStart,
		CleaningTime: req.CleaningTime,
		ObjectTypeID: req.ObjectTypeID,
		PaymentType:  req.PaymentType,
		Description:  req.Description,
		Inventory:    toConsumables(req.Inventory),
		Cleansers:    toConsumables(req.Cleansers),
	}
	for _, l := range req.Services {
		svcReq.Services = append(svcReq.Services, l.toService())
	}
	for _, s := range req.Staff {
		svcReq.Staff = append(svcReq.Staff, service.StaffRequest{StaffID: s.StaffID, IsBrigadier: s.IsBrigadier})
	}

	detail, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, err, "create order")
		return
	}

	writeJSON(w, http.StatusCreated, orderDetailResponse{
		Order:     detail.Order,
		Total:     detail.Total,
		Services:  nonNil(detail.Services),
		Staff:     nonNil(detail.Staff),
		Inventory: nonNil(detail.Inventory),
		Cleansers: nonNil(detail.Cleansers),
	})
}

// List returns orders filtered by ?status, ?start_date and ?end_date.
// Managers only see their own orders; admins may pass ?manager_id.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	limit, offset := pagination(r)
	params := database.ListOrdersParams{Limit: limit, Offset: offset}

	if s := r.URL.Query().Get("status"); s != "" {
		switch s {
		case enum.OrderStatusNew, enum.OrderStatusInProgress, enum.OrderStatusFinished, enum.OrderStatusCanceled:
			params.Status = pgtype.Text{String: s, Valid: true}
		default:
			writeErr(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	if policy.IsAdmin(claims) {
		if s := r.URL.Query().Get("manager_id"); s != "" {
			id, err := queryID(s)
			if err != nil {
				writeErr(w, http.StatusBadRequest, "invalid manager_id")
				return
			}
			params.ManagerID = pgtype.Int8{Int64: id, Valid: true}
		}
	} else {
		params.ManagerID = pgtype.Int8{Int64: claims.StaffID, Valid: true}
	}

	from, to, ok := dateRange(w, r, h.loc)
	if !ok {
		return
	}
	params.StartDate, params.EndDate = from, to

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "list orders")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

// Get returns an order with its lines, crew, consumables and field reports.
// Office staff see any order; field staff only orders they are assigned to.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusNotFound, "order not found")
			return
		}
		writeServiceError(w, err, "get order")
		return
	}

	staff, err := h.store.ListStaffOrdersByOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "list order staff")
		return
	}
	if !policy.IsManager(claims) && !assignedTo(claims, staff) {
		writeErr(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	resp := orderDetailResponse{Order: order, Staff: staff}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		resp.Services, err = h.store.ListServiceOrdersByOrder(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		resp.Inventory, err = h.store.ListInventoryInOrder(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		resp.Cleansers, err = h.store.ListCleansersInOrder(ctx, id)
		return err
	})
	g.Go(func() error {
		fr, err := h.store.GetForemanReportByOrder(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err == nil {
			resp.ForemanReport = &fr
		}
		return err
	})
	g.Go(func() (err error) {
		resp.Photos, err = h.store.ListForemanPhotosByOrder(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		resp.Updates, err = h.store.ListForemanOrderUpdatesByOrder(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		resp.Reports, err = h.store.ListManagerReportsByOrder(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		writeServiceError(w, err, "load order detail")
		return
	}

	resp.Total = service.OrderTotal(resp.Services)
	resp.Services = nonNil(resp.Services)
	resp.Staff = nonNil(resp.Staff)
	resp.Inventory = nonNil(resp.Inventory)
	resp.Cleansers = nonNil(resp.Cleansers)
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.store, policy.CanManageOrder)
	if !ok {
		return
	}
	canceled, err := h.svc.CancelOrder(r.Context(), order.ID)
	if err != nil {
		writeServiceError(w, err, "cancel order")
		return
	}
	writeJSON(w, http.StatusOK, canceled)
}

func (h *OrderHandler) SetCleanersPart(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.store, policy.CanManageOrder)
	if !ok {
		return
	}
	var req cleanersPartRequest
	if !decodeValid(w, r, &req) {
		return
	}
	updated, err := h.svc.SetCleanersPart(r.Context(), order.ID, req.CleanersPart)
	if err != nil {
		writeServiceError(w, err, "set cleaners part")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) AddServiceLine(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.store, policy.CanManageOrder)
	if !ok {
		return
	}
	var req serviceLineRequest
	if !decodeValid(w, r, &req) {
		return
	}
	line, err := h.svc.AddServiceLine(r.Context(), order.ID, req.toService())
	if err != nil {
		writeServiceError(w, err, "add service line")
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *OrderHandler) UpdateServiceLine(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.store, policy.CanManageOrder)
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}
	var req updateLineRequest
	if !decodeValid(w, r, &req) {
		return
	}
	line, err := h.svc.UpdateServiceLine(r.Context(), order.ID, lineID, req.Amount, req.Rate)
	if err != nil {
		writeServiceError(w, err, "update service line")
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *OrderHandler) DeleteServiceLine(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.store, policy.CanManageOrder)
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}
	if err := h.svc.DeleteServiceLine(r.Context(), order.ID, lineID); err != nil {
		writeServiceError(w, err, "delete service line")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// authorizeOrder loads the {id} order and runs the policy check before any
// business logic. On failure it has already answered.
func authorizeOrder(w http.ResponseWriter, r *http.Request, orders OrderGetter, allow func(*auth.Claims, database.Order) bool) (database.Order, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return database.Order{}, false
	}
	order, err := orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusNotFound, "order not found")
			return order, false
		}
		writeServiceError(w, err, "get order")
		return order, false
	}
	if !allow(middleware.ClaimsFromContext(r.Context()), order) {
		writeErr(w, http.StatusForbidden, "insufficient permissions")
		return order, false
	}
	return order, true
}

func assignedTo(claims *auth.Claims, staff []database.StaffOrder) bool {
	if claims == nil {
		return false
	}
	for _, so := range staff {
		if so.StaffID == claims.StaffID {
			return true
		}
	}
	return false
}

// dateRange reads ?start_date and ?end_date. A plain end date includes the
// whole day.
func dateRange(w http.ResponseWriter, r *http.Request, loc *time.Location) (from, to pgtype.Timestamptz, ok bool) {
	start, err := dateQuery(r, "start_date", loc)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return from, to, false
	}
	end, err := dateQuery(r, "end_date", loc)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return from, to, false
	}
	if start != nil {
		from = pgtype.Timestamptz{Time: *start, Valid: true}
	}
	if end != nil {
		e := *end
		if len(r.URL.Query().Get("end_date")) == len("2006-01-02") {
			e = e.AddDate(0, 0, 1)
		}
		to = pgtype.Timestamptz{Time: e, Valid: true}
	}
	return from, to, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
