package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/phone"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ClientStore defines the database methods needed by client handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ClientStore interface {
	ListClients(ctx context.Context, arg database.ListClientsParams) ([]database.Client, error)
	GetClient(ctx context.Context, id int64) (database.Client, error)
	GetClientByPhone(ctx context.Context, phone string) (database.Client, error)
	CreateClient(ctx context.Context, arg database.CreateClientParams) (database.Client, error)
	UpdateClient(ctx context.Context, arg database.UpdateClientParams) (database.Client, error)
	DeleteClient(ctx context.Context, id int64) (int64, error)
}

// ClientHandler handles client CRUD endpoints.
type ClientHandler struct {
	store ClientStore
}

func NewClientHandler(store ClientStore) *ClientHandler {
	return &ClientHandler{store: store}
}

// RegisterRoutes registers client endpoints. Expected to be mounted at /clients.
func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type clientRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"required"`
}

// List searches clients by name or phone. ?phone= does an exact lookup on
// the normalized number instead.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("phone"); raw != "" {
		h.findByPhone(w, r, raw)
		return
	}

	limit, offset := pagination(r)
	params := database.ListClientsParams{Limit: limit, Offset: offset}
	if q := r.URL.Query().Get("search"); q != "" {
		params.Search = pgtype.Text{String: q, Valid: true}
	}

	clients, err := h.store.ListClients(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "list clients")
		return
	}
	if clients == nil {
		clients = []database.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) findByPhone(w http.ResponseWriter, r *http.Request, raw string) {
	normalized, err := phone.Normalize(raw)
	if err != nil {
		writeServiceError(w, err, "find client")
		return
	}
	c, err := h.store.GetClientByPhone(r.Context(), normalized)
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusOK, []database.Client{})
		return
	}
	if err != nil {
		writeServiceError(w, err, "find client")
		return
	}
	writeJSON(w, http.StatusOK, []database.Client{c})
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get client")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decodeValid(w, r, &req) {
		return
	}
	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		writeServiceError(w, err, "create client")
		return
	}

	c, err := h.store.CreateClient(r.Context(), database.CreateClientParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     normalized,
	})
	if err != nil {
		if pgErrorCode(err) == "23505" {
			writeErr(w, http.StatusConflict, "a client with this phone already exists")
			return
		}
		writeServiceError(w, err, "create client")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req clientRequest
	if !decodeValid(w, r, &req) {
		return
	}
	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		writeServiceError(w, err, "update client")
		return
	}

	c, err := h.store.UpdateClient(r.Context(), database.UpdateClientParams{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     normalized,
	})
	if err != nil {
		if pgErrorCode(err) == "23505" {
			writeErr(w, http.StatusConflict, "a client with this phone already exists")
			return
		}
		writeServiceError(w, err, "update client")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete removes a client with no orders; referenced clients answer 409.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.DeleteClient(r.Context(), id); err != nil {
		writeServiceError(w, err, "delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
