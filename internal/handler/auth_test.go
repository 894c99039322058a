package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tapntake/api/internal/auth"
	"github.com/tapntake/api/internal/database"
	"github.com/tapntake/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	byUsername map[string]database.Admin
	byID       map[uuid.UUID]database.Admin
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		byUsername: make(map[string]database.Admin),
		byID:       make(map[uuid.UUID]database.Admin),
	}
}

func (m *mockAuthStore) addAdmin(a database.Admin) {
	m.byUsername[a.Username] = a
	m.byID[a.ID] = a
}

func (m *mockAuthStore) GetAdminByUsername(_ context.Context, username string) (database.Admin, error) {
	a, ok := m.byUsername[username]
	if !ok {
		return database.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAuthStore) GetAdminByID(_ context.Context, id uuid.UUID) (database.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return database.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestAdmin(t *testing.T) database.Admin {
	t.Helper()
	return database.Admin{
		ID:           uuid.New(),
		Username:     "barista",
		PasswordHash: hashPassword(t, "correct-password"),
		Role:         "STAFF",
		IsActive:     true,
	}
}

func newAuthRouter(store handler.AuthStore) http.Handler {
	r := chi.NewRouter()
	handler.NewAuthHandler(store, testSecret).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, "POST", path, body, "")
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	store := newMockAuthStore()
	admin := makeTestAdmin(t)
	store.addAdmin(admin)

	rr := postJSON(t, newAuthRouter(store), "/auth/login", map[string]string{
		"username": "barista",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	accessToken, ok := resp["access_token"].(string)
	if !ok || accessToken == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}
	if resp["expires_in"] != float64(900) {
		t.Errorf("expires_in: got %v, want 900", resp["expires_in"])
	}

	adminResp, ok := resp["admin"].(map[string]interface{})
	if !ok {
		t.Fatal("expected admin object in response")
	}
	if adminResp["role"] != "STAFF" {
		t.Errorf("admin role: got %v, want STAFF", adminResp["role"])
	}

	claims, err := auth.ValidateToken(testSecret, accessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.AdminID != admin.ID {
		t.Errorf("claims admin ID: got %v, want %v", claims.AdminID, admin.ID)
	}
	if claims.Username != "barista" {
		t.Errorf("claims username: got %v, want barista", claims.Username)
	}
}

func TestLogin_Rejected(t *testing.T) {
	store := newMockAuthStore()
	store.addAdmin(makeTestAdmin(t))
	router := newAuthRouter(store)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"username": "barista", "password": "wrong"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "nobody", "password": "password"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"username": "barista"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, router, "/auth/login", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	store := newMockAuthStore()
	admin := makeTestAdmin(t)
	store.addAdmin(admin)

	refreshToken, err := auth.GenerateRefreshToken(testSecret, admin.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, newAuthRouter(store), "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	store := newMockAuthStore()
	admin := makeTestAdmin(t)
	store.addAdmin(admin)
	access, _ := auth.GenerateToken(testSecret, admin.ID, admin.Username, admin.Role)

	rr := postJSON(t, newAuthRouter(store), "/auth/refresh", map[string]string{
		"refresh_token": access,
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_AdminDeleted(t *testing.T) {
	refreshToken, _ := auth.GenerateRefreshToken(testSecret, uuid.New())

	rr := postJSON(t, newAuthRouter(newMockAuthStore()), "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

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

func TestLogin_TrimsUsername(t *testing.T) {
	store := newMockAuthStore()
	store.addAdmin(makeTestAdmin(t))

	rr := postJSON(t, newAuthRouter(store), "/auth/login", map[string]string{
		"username": "  barista ",
		"password": "correct-password",
	})
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

