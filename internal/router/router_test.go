package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/models"
)

// fakeAuth authenticates from the X-Test-Role header; no header means 401.
func fakeAuth(accounts map[string]*models.Account) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc, ok := accounts[r.Header.Get("X-Test-Role")]
			if !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithAccount(r.Context(), acc)))
		})
	}
}

func newTestRouter() http.Handler {
	accounts := map[string]*models.Account{
		"user":    {ID: uuid.New(), Role: models.RoleUser},
		"mitra":   {ID: uuid.New(), Role: models.RoleMitra, Status: models.AccountStatusVerified},
		"blocked": {ID: uuid.New(), Role: models.RoleMitra, Status: models.AccountStatusVerified, Blocked: true, Balance: -11250, OutstandingDebt: 11250},
		"admin":   {ID: uuid.New(), Role: models.RoleAdmin},
	}
	// Only gate behaviour is exercised, so the handlers are never reached.
	return New(Handlers{}, fakeAuth(accounts))
}

func TestRouter_Gates(t *testing.T) {
	h := newTestRouter()
	id := uuid.NewString()
	tests := []struct {
		name   string
		method string
		path   string
		role   string
		want   int
	}{
		{"anonymous account", http.MethodGet, "/api/v1/account/me", "", http.StatusUnauthorized},
		{"anonymous order", http.MethodPost, "/api/v1/orders", "", http.StatusUnauthorized},
		{"mitra cannot book", http.MethodPost, "/api/v1/orders", "mitra", http.StatusForbidden},
		{"user cannot accept", http.MethodPost, "/api/v1/mitra/orders/" + id + "/accept", "user", http.StatusForbidden},
		{"user cannot see statistics", http.MethodGet, "/api/v1/mitra/statistics", "user", http.StatusForbidden},
		{"mitra cannot approve top-ups", http.MethodPost, "/api/v1/admin/topups/" + id + "/approve", "mitra", http.StatusForbidden},
		{"user cannot unblock", http.MethodPost, "/api/v1/admin/accounts/" + id + "/unblock", "user", http.StatusForbidden},
		{"blocked mitra cannot accept", http.MethodPost, "/api/v1/mitra/orders/" + id + "/accept", "blocked", http.StatusForbidden},
		{"blocked mitra cannot start", http.MethodPost, "/api/v1/mitra/orders/" + id + "/start", "blocked", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nope", "admin", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/v1/auth/login", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("X-Test-Role", tt.role)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_BlockedBodyCarriesDebt(t *testing.T) {
	h := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mitra/orders/"+uuid.NewString()+"/start", nil)
	req.Header.Set("X-Test-Role", "blocked")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "account blocked" || body["outstanding_debt"] != float64(11250) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRouter_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
