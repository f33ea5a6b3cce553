package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/cleaning-crm/api/internal/auth"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/handler"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockAuthStore struct {
	byPhone map[string]database.Staff
	byID    map[int64]database.Staff
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		byPhone: make(map[string]database.Staff),
		byID:    make(map[int64]database.Staff),
	}
}

func (m *mockAuthStore) add(s database.Staff) {
	m.byPhone[s.Phone] = s
	m.byID[s.ID] = s
}

func (m *mockAuthStore) GetStaffByPhone(_ context.Context, phone string) (database.Staff, error) {
	s, ok := m.byPhone[phone]
	if !ok {
		return database.Staff{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockAuthStore) GetStaff(_ context.Context, id int64) (database.Staff, error) {
	s, ok := m.byID[id]
	if !ok {
		return database.Staff{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockAuthStore) UpdateStaffPassword(_ context.Context, id int64, hashed string) error {
	s, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.HashedPassword = hashed
	m.add(s)
	return nil
}

func makeTestStaff(t *testing.T) database.Staff {
	t.Helper()
	return database.Staff{
		ID:             7,
		Phone:          "+996555123456",
		FirstName:      "Aida",
		LastName:       "Manager",
		HashedPassword: hashPassword(t, "correct-password"),
		Role:           enum.RoleManager,
		IsActive:       true,
	}
}

func newAuthRouter(store handler.AuthStore) http.Handler {
	h := handler.NewAuthHandler(store, testSecret, false)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockAuthStore()
	store.add(makeTestStaff(t))
	r := newAuthRouter(store)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"phone":    "0555 123 456",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.AccessCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Errorf("expected HttpOnly %s cookie, got %+v", middleware.AccessCookie, cookie)
	}

	resp := decodeResponse(t, rr)
	accessToken, _ := resp["access_token"].(string)
	if accessToken == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	claims, err := auth.ValidateToken(testSecret, accessToken)
	if err != nil {
		t.Fatalf("access token should be valid: %v", err)
	}
	if claims.StaffID != 7 || claims.Role != enum.RoleManager {
		t.Errorf("claims: got (%d, %s), want (7, MANAGER)", claims.StaffID, claims.Role)
	}

	staff, ok := resp["staff"].(map[string]interface{})
	if !ok {
		t.Fatal("expected staff object in response")
	}
	if _, leaked := staff["hashed_password"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestLogin_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"phone": "+996555123456", "password": "nope"}, http.StatusUnauthorized},
		{"unknown phone", map[string]string{"phone": "+996700000000", "password": "correct-password"}, http.StatusUnauthorized},
		{"garbage phone", map[string]string{"phone": "abc", "password": "correct-password"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"phone": "+996555123456"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockAuthStore()
			store.add(makeTestStaff(t))
			rr := postJSON(t, newAuthRouter(store), "/auth/login", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestLogin_Blacklisted(t *testing.T) {
	store := newMockAuthStore()
	s := makeTestStaff(t)
	s.BlackList = true
	store.add(s)

	rr := postJSON(t, newAuthRouter(store), "/auth/login", map[string]string{
		"phone":    s.Phone,
		"password": "correct-password",
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockAuthStore()
	store.add(makeTestStaff(t))

	refreshToken, err := auth.GenerateRefreshToken(testSecret, 7)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, newAuthRouter(store), "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	rr := postJSON(t, newAuthRouter(newMockAuthStore()), "/auth/refresh", map[string]string{"refresh_token": "not-a-token"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_StaffDeactivated(t *testing.T) {
	store := newMockAuthStore()
	s := makeTestStaff(t)
	s.IsActive = false
	store.add(s)

	refreshToken, _ := auth.GenerateRefreshToken(testSecret, s.ID)
	rr := postJSON(t, newAuthRouter(store), "/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingField(t *testing.T) {
	rr := postJSON(t, newAuthRouter(newMockAuthStore()), "/auth/refresh", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Logout / password ---

func TestLogout_ClearsCookie(t *testing.T) {
	rr := postJSON(t, newAuthRouter(newMockAuthStore()), "/auth/logout", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.AccessCookie || cookies[0].MaxAge >= 0 {
		t.Errorf("expected expired access cookie, got %+v", cookies)
	}
}

func TestChangePassword(t *testing.T) {
	store := newMockAuthStore()
	store.add(makeTestStaff(t))
	r := newAuthRouter(store)
	token := tokenFor(t, 7, enum.RoleManager)

	rr := doJSON(t, r, http.MethodPost, "/auth/password", token, map[string]string{
		"old_password": "wrong",
		"new_password": "brand-new-pass",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("wrong old password: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doJSON(t, r, http.MethodPost, "/auth/password", token, map[string]string{
		"old_password": "correct-password",
		"new_password": "short",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("short password: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doJSON(t, r, http.MethodPost, "/auth/password", token, map[string]string{
		"old_password": "correct-password",
		"new_password": "brand-new-pass",
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store.byID[7].HashedPassword), []byte("brand-new-pass")); err != nil {
		t.Error("password was not updated")
	}

	rr = doJSON(t, r, http.MethodPost, "/auth/password", "", map[string]string{
		"old_password": "brand-new-pass",
		"new_password": "another-pass",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
