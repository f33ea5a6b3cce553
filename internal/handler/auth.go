package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cleaning-crm/api/internal/auth"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/logger"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/phone"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetStaffByPhone(ctx context.Context, phone string) (database.Staff, error)
	GetStaff(ctx context.Context, id int64) (database.Staff, error)
	UpdateStaffPassword(ctx context.Context, id int64, hashedPassword string) error
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store        AuthStore
	jwtSecret    string
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the access
// cookie Secure, which production deployments behind TLS want.
func NewAuthHandler(store AuthStore, jwtSecret string, secureCookie bool) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, secureCookie: secureCookie}
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
}

// RegisterProtectedRoutes registers endpoints that need an authenticated caller.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/auth/password", h.ChangePassword)
}

// --- Request / Response types ---

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type tokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Staff        database.Staff `json:"staff"`
}

// --- Handlers ---

// Login handles phone + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}

	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	staff, err := h.store.GetStaffByPhone(r.Context(), normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.Log.WithError(err).Error("login: lookup staff")
		writeErr(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.HashedPassword), []byte(req.Password)); err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if staff.BlackList {
		writeErr(w, http.StatusForbidden, "account is blacklisted")
		return
	}

	h.respondWithTokens(w, staff)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeValid(w, r, &req) {
		return
	}

	staffID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	staff, err := h.store.GetStaff(r.Context(), staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeErr(w, http.StatusUnauthorized, "staff member not found")
			return
		}
		logger.Log.WithError(err).Error("refresh: lookup staff")
		writeErr(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !staff.IsActive || staff.BlackList {
		writeErr(w, http.StatusUnauthorized, "account disabled")
		return
	}

	h.respondWithTokens(w, staff)
}

// Logout clears the access cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword lets the caller replace their own password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	staff, err := h.store.GetStaff(r.Context(), claims.StaffID)
	if err != nil {
		writeServiceError(w, err, "change password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.HashedPassword), []byte(req.OldPassword)); err != nil {
		writeErr(w, http.StatusBadRequest, "old password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, err, "hash password")
		return
	}
	if err := h.store.UpdateStaffPassword(r.Context(), staff.ID, string(hash)); err != nil {
		writeServiceError(w, err, "change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, staff database.Staff) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, staff.ID, staff.Role)
	if err != nil {
		writeServiceError(w, err, "sign access token")
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, staff.ID)
	if err != nil {
		writeServiceError(w, err, "sign refresh token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  time.Now().Add(auth.AccessTokenTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Staff:        staff,
	})
}
