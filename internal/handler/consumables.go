package handler

import (
	"context"
	"net/http"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ConsumableStore defines the database methods needed by inventory and
// cleanser handlers. Satisfied by *database.Queries.
type ConsumableStore interface {
	ListInventory(ctx context.Context) ([]database.Inventory, error)
	GetInventory(ctx context.Context, id int64) (database.Inventory, error)
	CreateInventory(ctx context.Context, name string, amount int32) (database.Inventory, error)
	UpdateInventory(ctx context.Context, id int64, name string, amount int32) (database.Inventory, error)
	DeleteInventory(ctx context.Context, id int64) (int64, error)

	ListCleansers(ctx context.Context) ([]database.Cleanser, error)
	GetCleanser(ctx context.Context, id int64) (database.Cleanser, error)
	CreateCleanser(ctx context.Context, arg database.CleanserParams) (database.Cleanser, error)
	UpdateCleanser(ctx context.Context, arg database.CleanserParams) (database.Cleanser, error)
	DeleteCleanser(ctx context.Context, id int64) (int64, error)
}

type ConsumableHandler struct {
	store ConsumableStore
}

func NewConsumableHandler(store ConsumableStore) *ConsumableHandler {
	return &ConsumableHandler{store: store}
}

func (h *ConsumableHandler) RegisterRoutes(r chi.Router) {
	office := middleware.RequireRole(enum.RoleAdmin, enum.RoleManager)

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.ListInventory)
		r.Get("/{id}", h.GetInventory)
		r.With(office).Post("/", h.CreateInventory)
		r.With(office).Put("/{id}", h.UpdateInventory)
		r.With(office).Delete("/{id}", deleteByID(h.store.DeleteInventory, "inventory item"))
	})
	r.Route("/cleansers", func(r chi.Router) {
		r.Get("/", h.ListCleansers)
		r.Get("/{id}", h.GetCleanser)
		r.With(office).Post("/", h.CreateCleanser)
		r.With(office).Put("/{id}", h.UpdateCleanser)
		r.With(office).Delete("/{id}", deleteByID(h.store.DeleteCleanser, "cleanser"))
	})
}

type inventoryRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Amount int32  `json:"amount" validate:"gte=0"`
}

type cleanserRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Unit        string          `json:"unit" validate:"required,oneof=piece liter kg"`
	Price       decimal.Decimal `json:"price"`
	Amount      int32           `json:"amount" validate:"gte=0"`
}

// --- Inventory ---

func (h *ConsumableHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListInventory(r.Context())
	if err != nil {
		writeServiceError(w, err, "list inventory")
		return
	}
	if list == nil {
		list = []database.Inventory{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ConsumableHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.store.GetInventory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get inventory")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *ConsumableHandler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !decodeValid(w, r, &req) {
		return
	}
	inv, err := h.store.CreateInventory(r.Context(), req.Name, req.Amount)
	if err != nil {
		writeServiceError(w, err, "create inventory")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *ConsumableHandler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req inventoryRequest
	if !decodeValid(w, r, &req) {
		return
	}
	inv, err := h.store.UpdateInventory(r.Context(), id, req.Name, req.Amount)
	if err != nil {
		writeServiceError(w, err, "update inventory")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// --- Cleansers ---

func (h *ConsumableHandler) ListCleansers(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListCleansers(r.Context())
	if err != nil {
		writeServiceError(w, err, "list cleansers")
		return
	}
	if list == nil {
		list = []database.Cleanser{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ConsumableHandler) GetCleanser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.store.GetCleanser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get cleanser")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConsumableHandler) CreateCleanser(w http.ResponseWriter, r *http.Request) {
	h.saveCleanser(w, r, 0)
}

func (h *ConsumableHandler) UpdateCleanser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.saveCleanser(w, r, id)
}

func (h *ConsumableHandler) saveCleanser(w http.ResponseWriter, r *http.Request, id int64) {
	var req cleanserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Price.IsNegative() {
		writeErr(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	params := database.CleanserParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Unit:        req.Unit,
		Price:       req.Price,
		Amount:      req.Amount,
	}
	var (
		c   database.Cleanser
		err error
	)
	if id == 0 {
		c, err = h.store.CreateCleanser(r.Context(), params)
	} else {
		c, err = h.store.UpdateCleanser(r.Context(), params)
	}
	if err != nil {
		writeServiceError(w, err, "save cleanser")
		return
	}

	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, c)
}
