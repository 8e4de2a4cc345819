package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/getlife/backend/internal/models"
)

// injectAccount wraps a handler to pre-set the account in context,
// simulating what Authenticate would do upstream.
func injectAccount(acc *models.Account, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
	})
}

// ---------------------------------------------------------------------------
// RequireRole
// ---------------------------------------------------------------------------

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{models.RoleMitra, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
		{models.RoleUser, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			acc := &models.Account{ID: uuid.New(), Role: tt.role}
			h := injectAccount(acc, RequireRole(models.RoleMitra, models.RoleAdmin)(okHandler))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireRole_NoAccount(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireRole(models.RoleAdmin)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// RejectBlocked
// ---------------------------------------------------------------------------

func TestRejectBlocked_AllowsActiveMitra(t *testing.T) {
	acc := &models.Account{ID: uuid.New(), Role: models.RoleMitra, Balance: 50000}
	rec := httptest.NewRecorder()
	injectAccount(acc, RejectBlocked(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRejectBlocked_ReportsDebt(t *testing.T) {
	acc := &models.Account{ID: uuid.New(), Role: models.RoleMitra, Balance: -11250, Blocked: true, OutstandingDebt: 11250}
	rec := httptest.NewRecorder()
	injectAccount(acc, RejectBlocked(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body struct {
		Error           string `json:"error"`
		OutstandingDebt int64  `json:"outstanding_debt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OutstandingDebt != 11250 {
		t.Errorf("expected outstanding_debt 11250, got %d", body.OutstandingDebt)
	}
	if body.Error != "account blocked" {
		t.Errorf("unexpected error %q", body.Error)
	}
}
