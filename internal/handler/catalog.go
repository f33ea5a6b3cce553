package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// CatalogStore defines the database methods needed by catalog handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListCleaningSorts(ctx context.Context) ([]database.CleaningSort, error)
	CreateCleaningSort(ctx context.Context, name string) (database.CleaningSort, error)
	UpdateCleaningSort(ctx context.Context, id int64, name string) (database.CleaningSort, error)
	DeleteCleaningSort(ctx context.Context, id int64) (int64, error)

	ListObjectTypes(ctx context.Context) ([]database.ObjectType, error)
	CreateObjectType(ctx context.Context, name string) (database.ObjectType, error)
	UpdateObjectType(ctx context.Context, id int64, name string) (database.ObjectType, error)
	DeleteObjectType(ctx context.Context, id int64) (int64, error)

	ListServices(ctx context.Context, arg database.ListServicesParams) ([]database.Service, error)
	GetService(ctx context.Context, id int64) (database.Service, error)
	CreateService(ctx context.Context, arg database.ServiceParams) (database.Service, error)
	UpdateService(ctx context.Context, arg database.ServiceParams) (database.Service, error)
	DeleteService(ctx context.Context, id int64) (int64, error)

	ListExtraServices(ctx context.Context) ([]database.ExtraService, error)
	GetExtraService(ctx context.Context, id int64) (database.ExtraService, error)
	CreateExtraService(ctx context.Context, arg database.ExtraServiceParams) (database.ExtraService, error)
	UpdateExtraService(ctx context.Context, arg database.ExtraServiceParams) (database.ExtraService, error)
	DeleteExtraService(ctx context.Context, id int64) (int64, error)
}

// CatalogHandler serves the price list: cleaning sorts, object types,
// services and extra services. Everyone signed in may read it; only the
// office may change it.
type CatalogHandler struct {
	store CatalogStore
}

func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	office := middleware.RequireRole(enum.RoleAdmin, enum.RoleManager)

	r.Route("/cleaning-sorts", func(r chi.Router) {
		r.Get("/", h.ListCleaningSorts)
		r.With(office).Post("/", h.CreateCleaningSort)
		r.With(office).Put("/{id}", h.UpdateCleaningSort)
		r.With(office).Delete("/{id}", deleteByID(h.store.DeleteCleaningSort, "cleaning sort"))
	})
	r.Route("/object-types", func(r chi.Router) {
		r.Get("/", h.ListObjectTypes)
		r.With(office).Post("/", h.CreateObjectType)
		r.With(office).Put("/{id}", h.UpdateObjectType)
		r.With(office).Delete("/{id}", deleteByID(h.store.DeleteObjectType, "object type"))
	})
	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.ListServices)
		r.Get("/{id}", h.GetService)
		r.With(office).Post("/", h.CreateService)
		r.With(office).Put("/{id}", h.UpdateService)
		r.With(office).Delete("/{id}", deleteByID(h.store.DeleteService, "service"))
	})
	r.Route("/extra-services", func(r chi.Router) {
		r.Get("/", h.ListExtraServices)
		r.Get("/{id}", h.GetExtraService)
		r.With(office).Post("/", h.CreateExtraService)
		r.With(office).Put("/{id}", h.UpdateExtraService)
		r.With(office).Delete("/{id}", deleteByID(h.store.DeleteExtraService, "extra service"))
	})
}

// --- Request types ---

type nameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type serviceRequest struct {
	CleaningSortID int64           `json:"cleaning_sort_id" validate:"required,gt=0"`
	ObjectTypeID   int64           `json:"object_type_id" validate:"required,gt=0"`
	Unit           string          `json:"unit" validate:"required,oneof=square_meter piece"`
	Price          decimal.Decimal `json:"price"`
}

type extraServiceRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Unit         string          `json:"unit" validate:"max=50"`
	Price        decimal.Decimal `json:"price"`
	CleaningTime *int32          `json:"cleaning_time" validate:"omitempty,gt=0"`
}

// --- Cleaning sorts / object types ---

func (h *CatalogHandler) ListCleaningSorts(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListCleaningSorts(r.Context())
	if err != nil {
		writeServiceError(w, err, "list cleaning sorts")
		return
	}
	if list == nil {
		list = []database.CleaningSort{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) CreateCleaningSort(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeValid(w, r, &req) {
		return
	}
	cs, err := h.store.CreateCleaningSort(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err, "create cleaning sort")
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

func (h *CatalogHandler) UpdateCleaningSort(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req nameRequest
	if !decodeValid(w, r, &req) {
		return
	}
	cs, err := h.store.UpdateCleaningSort(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, err, "update cleaning sort")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *CatalogHandler) ListObjectTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListObjectTypes(r.Context())
	if err != nil {
		writeServiceError(w, err, "list object types")
		return
	}
	if list == nil {
		list = []database.ObjectType{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) CreateObjectType(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeValid(w, r, &req) {
		return
	}
	ot, err := h.store.CreateObjectType(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err, "create object type")
		return
	}
	writeJSON(w, http.StatusCreated, ot)
}

func (h *CatalogHandler) UpdateObjectType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req nameRequest
	if !decodeValid(w, r, &req) {
		return
	}
	ot, err := h.store.UpdateObjectType(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, err, "update object type")
		return
	}
	writeJSON(w, http.StatusOK, ot)
}

// --- Services ---

// ListServices accepts ?cleaning_sort_id= and ?object_type_id= filters.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	var params database.ListServicesParams
	for key, dst := range map[string]*pgtype.Int8{
		"cleaning_sort_id": &params.CleaningSortID,
		"object_type_id":   &params.ObjectTypeID,
	} {
		s := r.URL.Query().Get(key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid "+key)
			return
		}
		*dst = pgtype.Int8{Int64: v, Valid: true}
	}

	list, err := h.store.ListServices(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "list services")
		return
	}
	if list == nil {
		list = []database.Service{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.store.GetService(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get service")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	h.saveService(w, r, 0)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.saveService(w, r, id)
}

// saveService creates when id is 0 and updates otherwise.
func (h *CatalogHandler) saveService(w http.ResponseWriter, r *http.Request, id int64) {
	var req serviceRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if !req.Price.IsPositive() {
		writeErr(w, http.StatusBadRequest, "price must be > 0")
		return
	}

	params := database.ServiceParams{
		ID:             id,
		CleaningSortID: req.CleaningSortID,
		ObjectTypeID:   req.ObjectTypeID,
		Unit:           req.Unit,
		Price:          req.Price,
	}
	var (
		s   database.Service
		err error
	)
	if id == 0 {
		s, err = h.store.CreateService(r.Context(), params)
	} else {
		s, err = h.store.UpdateService(r.Context(), params)
	}
	if err != nil {
		if pgErrorCode(err) == "23503" {
			writeErr(w, http.StatusBadRequest, "unknown cleaning sort or object type")
			return
		}
		writeServiceError(w, err, "save service")
		return
	}

	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, s)
}

// --- Extra services ---

func (h *CatalogHandler) ListExtraServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListExtraServices(r.Context())
	if err != nil {
		writeServiceError(w, err, "list extra services")
		return
	}
	if list == nil {
		list = []database.ExtraService{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) GetExtraService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	es, err := h.store.GetExtraService(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get extra service")
		return
	}
	writeJSON(w, http.StatusOK, es)
}

func (h *CatalogHandler) CreateExtraService(w http.ResponseWriter, r *http.Request) {
	h.saveExtraService(w, r, 0)
}

func (h *CatalogHandler) UpdateExtraService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.saveExtraService(w, r, id)
}

func (h *CatalogHandler) saveExtraService(w http.ResponseWriter, r *http.Request, id int64) {
	var req extraServiceRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if !req.Price.IsPositive() {
		writeErr(w, http.StatusBadRequest, "price must be > 0")
		return
	}

	params := database.ExtraServiceParams{ID: id, Name: req.Name, Price: req.Price}
	if req.Unit != "" {
		params.Unit = pgtype.Text{String: req.Unit, Valid: true}
	}
	if req.CleaningTime != nil {
		params.CleaningTime = pgtype.Int4{Int32: *req.CleaningTime, Valid: true}
	}

	var (
		es  database.ExtraService
		err error
	)
	if id == 0 {
		es, err = h.store.CreateExtraService(r.Context(), params)
	} else {
		es, err = h.store.UpdateExtraService(r.Context(), params)
	}
	if err != nil {
		writeServiceError(w, err, "save extra service")
		return
	}

	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, es)
}

// deleteByID answers 204, 404 for a missing row, or 409 while other records
// still reference it.
func deleteByID(del func(ctx context.Context, id int64) (int64, error), what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if _, err := del(r.Context(), id); err != nil {
			if pgErrorCode(err) == "23503" {
				writeErr(w, http.StatusConflict, what+" is still in use")
				return
			}
			writeServiceError(w, err, "delete "+what)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
