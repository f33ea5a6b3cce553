package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/logger"
	"github.com/cleaning-crm/api/internal/media"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/phone"
	"github.com/cleaning-crm/api/internal/policy"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// cashHistoryWindow is how far back a profile lists cash ledger entries.
const cashHistoryWindow = 30 * 24 * time.Hour

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaff(ctx context.Context, arg database.ListStaffParams) ([]database.Staff, error)
	ListBlacklistedStaff(ctx context.Context) ([]database.Staff, error)
	GetStaff(ctx context.Context, id int64) (database.Staff, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	UpdateStaffPhoto(ctx context.Context, id int64, path string) (database.Staff, error)
	UpdateStaffSchedule(ctx context.Context, id int64, schedule []int16) (database.Staff, error)
	SetStaffBlacklist(ctx context.Context, id int64, blackList bool) (database.Staff, error)
	DeactivateStaff(ctx context.Context, id int64) (int64, error)
	ListCashByStaff(ctx context.Context, staffID int64, since time.Time) ([]database.CashManager, error)
}

// StaffHandler handles staff account endpoints.
type StaffHandler struct {
	store  StaffStore
	images service.ImageSaver
}

func NewStaffHandler(store StaffStore, images service.ImageSaver) *StaffHandler {
	return &StaffHandler{store: store, images: images}
}

// RegisterRoutes registers staff endpoints. Expected to be mounted at /staff
// behind Authenticate.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	staffOffice := middleware.RequireRole(enum.RoleAdmin, enum.RoleManager)

	r.With(staffOffice).Get("/", h.List)
	r.With(middleware.RequireRole(enum.RoleAdmin)).Post("/", h.Create)
	r.With(staffOffice).Get("/blacklist", h.ListBlacklist)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.With(middleware.RequireRole(enum.RoleAdmin)).Delete("/{id}", h.Delete)
	r.Put("/{id}/photo", h.UploadPhoto)
	r.Put("/{id}/schedule", h.UpdateSchedule)
	r.With(staffOffice).Post("/{id}/blacklist", h.AddToBlacklist)
	r.With(staffOffice).Delete("/{id}/blacklist", h.RemoveFromBlacklist)
}

// --- Request / Response types ---

type createStaffRequest struct {
	Phone          string  `json:"phone" validate:"required"`
	FirstName      string  `json:"first_name" validate:"required,max=100"`
	LastName       string  `json:"last_name" validate:"required,max=100"`
	Password       string  `json:"password" validate:"required,min=8"`
	Role           string  `json:"role" validate:"required,oneof=ADMIN MANAGER BRIGADIER CLEANER"`
	Schedule       []int16 `json:"schedule" validate:"omitempty,dive,min=1,max=7"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

type updateStaffRequest struct {
	Phone          string `json:"phone" validate:"required"`
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	Role           string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER BRIGADIER CLEANER"`
	TelegramChatID *int64 `json:"telegram_chat_id"`
}

type scheduleRequest struct {
	Schedule []int16 `json:"schedule" validate:"dive,min=1,max=7"`
}

type staffProfileResponse struct {
	database.Staff
	Cash []database.CashManager `json:"cash,omitempty"`
}

// --- Handlers ---

// List returns active staff, optionally filtered by role and a search term.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	params := database.ListStaffParams{Limit: limit, Offset: offset}
	if role := r.URL.Query().Get("role"); role != "" {
		params.Role = pgtype.Text{String: role, Valid: true}
	}
	if q := r.URL.Query().Get("search"); q != "" {
		params.Search = pgtype.Text{String: q, Valid: true}
	}

	staff, err := h.store.ListStaff(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "list staff")
		return
	}
	if staff == nil {
		staff = []database.Staff{}
	}
	writeJSON(w, http.StatusOK, staff)
}

// Create registers a new staff account.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if !decodeValid(w, r, &req) {
		return
	}

	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		writeServiceError(w, err, "create staff")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, err, "hash password")
		return
	}

	staff, err := h.store.CreateStaff(r.Context(), database.CreateStaffParams{
		Phone:          normalized,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: string(hashed),
		Role:           req.Role,
		Schedule:       normalizeSchedule(req.Schedule),
		TelegramChatID: optionalInt8(req.TelegramChatID),
	})
	if err != nil {
		if pgErrorCode(err) == "23505" {
			writeErr(w, http.StatusConflict, "phone already registered")
			return
		}
		writeServiceError(w, err, "create staff")
		return
	}

	writeJSON(w, http.StatusCreated, staff)
}

// Get returns a staff profile. Managers see everyone, field staff only
// themselves. Manager profiles include the recent cash ledger.
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if !policy.IsManager(claims) && !policy.CanEditStaff(claims, id) {
		writeErr(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	staff, err := h.store.GetStaff(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get staff")
		return
	}

	resp := staffProfileResponse{Staff: staff}
	if staff.Role == enum.RoleManager || staff.Role == enum.RoleAdmin {
		resp.Cash, err = h.store.ListCashByStaff(r.Context(), staff.ID, time.Now().Add(-cashHistoryWindow))
		if err != nil {
			writeServiceError(w, err, "list cash")
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update edits a profile. Only admins may change a role.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if !policy.CanEditStaff(claims, id) {
		writeErr(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req updateStaffRequest
	if !decodeValid(w, r, &req) {
		return
	}

	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		writeServiceError(w, err, "update staff")
		return
	}

	current, err := h.store.GetStaff(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "update staff")
		return
	}
	role := current.Role
	if req.Role != "" && req.Role != current.Role {
		if !policy.IsAdmin(claims) {
			writeErr(w, http.StatusForbidden, "only an admin can change roles")
			return
		}
		role = req.Role
	}

	staff, err := h.store.UpdateStaff(r.Context(), database.UpdateStaffParams{
		ID:             id,
		Phone:          normalized,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		TelegramChatID: optionalInt8(req.TelegramChatID),
	})
	if err != nil {
		if pgErrorCode(err) == "23505" {
			writeErr(w, http.StatusConflict, "phone already registered")
			return
		}
		writeServiceError(w, err, "update staff")
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// Delete deactivates the account; history rows keep referencing it.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.DeactivateStaff(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeServiceError(w, err, "deactivate staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto stores the multipart "photo" file and replaces the old one.
func (h *StaffHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !policy.CanEditStaff(middleware.ClaimsFromContext(r.Context()), id) {
		writeErr(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	current, err := h.store.GetStaff(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "upload photo")
		return
	}

	file, filename, ok := formImage(w, r, "photo")
	if !ok {
		return
	}
	defer file.Close()

	rel, err := h.images.SaveImage("staff", filename, file)
	if err != nil {
		writeServiceError(w, err, "save photo")
		return
	}

	staff, err := h.store.UpdateStaffPhoto(r.Context(), id, rel)
	if err != nil {
		if rmErr := h.images.Remove(rel); rmErr != nil {
			logger.Log.WithError(rmErr).WithField("path", rel).Warn("remove orphaned photo")
		}
		writeServiceError(w, err, "upload photo")
		return
	}
	if current.PhotoPath.Valid && current.PhotoPath.String != rel {
		if err := h.images.Remove(current.PhotoPath.String); err != nil {
			logger.Log.WithError(err).WithField("path", current.PhotoPath.String).Warn("remove old photo")
		}
	}
	writeJSON(w, http.StatusOK, staff)
}

// UpdateSchedule replaces the ISO weekdays the staff member works on.
func (h *StaffHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !policy.CanEditStaff(middleware.ClaimsFromContext(r.Context()), id) {
		writeErr(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req scheduleRequest
	if !decodeValid(w, r, &req) {
		return
	}

	staff, err := h.store.UpdateStaffSchedule(r.Context(), id, normalizeSchedule(req.Schedule))
	if err != nil {
		writeServiceError(w, err, "update schedule")
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

func (h *StaffHandler) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	staff, err := h.store.ListBlacklistedStaff(r.Context())
	if err != nil {
		writeServiceError(w, err, "list blacklist")
		return
	}
	if staff == nil {
		staff = []database.Staff{}
	}
	writeJSON(w, http.StatusOK, staff)
}

func (h *StaffHandler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	h.setBlacklist(w, r, true)
}

func (h *StaffHandler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	h.setBlacklist(w, r, false)
}

func (h *StaffHandler) setBlacklist(w http.ResponseWriter, r *http.Request, on bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims.StaffID == id {
		writeErr(w, http.StatusBadRequest, "cannot blacklist yourself")
		return
	}

	staff, err := h.store.SetStaffBlacklist(r.Context(), id, on)
	if err != nil {
		writeServiceError(w, err, "set blacklist")
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// --- Helpers ---

// normalizeSchedule sorts weekdays and drops duplicates.
func normalizeSchedule(days []int16) []int16 {
	seen := make(map[int16]bool, len(days))
	out := make([]int16, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func optionalInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

// formImage parses a multipart upload capped at media.MaxUploadSize and
// returns the named file part. On failure it has already answered 400.
func formImage(w http.ResponseWriter, r *http.Request, field string) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(media.MaxUploadSize); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid multipart form")
		return nil, "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeErr(w, http.StatusBadRequest, field+" file is required")
		return nil, "", false
	}
	return file, header.Filename, true
}
