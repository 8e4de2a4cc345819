package worksession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/getlife/backend/internal/billing"
	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/validation"
)

// stubService returns canned results; unset funcs panic.
type stubService struct {
	Service
	createOrder func(userID, mitraID uuid.UUID, serviceType, address string) (*models.Order, error)
	accept      func(mitraID, orderID uuid.UUID) (*models.Order, error)
	finish      func(mitraID, orderID uuid.UUID) (*Settlement, error)
	progress    func(mitraID, orderID uuid.UUID) (*Progress, error)
}

func (s *stubService) CreateOrder(_ context.Context, userID, mitraID uuid.UUID, serviceType, address string) (*models.Order, error) {
	return s.createOrder(userID, mitraID, serviceType, address)
}
func (s *stubService) Accept(_ context.Context, mitraID, orderID uuid.UUID) (*models.Order, error) {
	return s.accept(mitraID, orderID)
}
func (s *stubService) Finish(_ context.Context, mitraID, orderID uuid.UUID) (*Settlement, error) {
	return s.finish(mitraID, orderID)
}
func (s *stubService) Progress(_ context.Context, mitraID, orderID uuid.UUID) (*Progress, error) {
	return s.progress(mitraID, orderID)
}

type stubMitras struct{ list []*models.Account }

func (s stubMitras) ListMitras(_ context.Context, serviceType string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range s.list {
		if serviceType == "" || a.Expertise == serviceType {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T, svc Service, mitras MitraLister) *Handler {
	t.Helper()
	v, err := validation.New()
	if err != nil {
		t.Fatalf("validation.New: %v", err)
	}
	return NewHandler(svc, mitras, v, billing.DefaultMinAcceptBalance, nil)
}

// serve routes a single request through chi so URL params resolve.
func serve(h http.HandlerFunc, method, pattern, target string, acc *models.Account, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if acc != nil {
		req = req.WithContext(middleware.WithAccount(req.Context(), acc))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestCreateOrderHandler(t *testing.T) {
	user := &models.Account{ID: uuid.New(), Role: models.RoleUser}
	mitraID := uuid.New()
	var gotService string
	svc := &stubService{createOrder: func(u, m uuid.UUID, st, addr string) (*models.Order, error) {
		gotService = st
		return &models.Order{ID: uuid.New(), UserID: u, MitraID: m, ServiceType: st, UserAddress: addr, Status: models.OrderStatusAwaiting}, nil
	}}
	h := newTestHandler(t, svc, stubMitras{})

	body := fmt.Sprintf(`{"mitra_id":%q,"service_type":"GetMassage","user_address":"Jl. Melati 12"}`, mitraID)
	rec := serve(h.CreateOrder, http.MethodPost, "/orders", "/orders", user, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotService != models.ServiceGetMassage {
		t.Errorf("service type not passed through: %q", gotService)
	}
}

func TestCreateOrderHandler_SchemaViolation(t *testing.T) {
	user := &models.Account{ID: uuid.New(), Role: models.RoleUser}
	h := newTestHandler(t, &stubService{}, stubMitras{})

	rec := serve(h.CreateOrder, http.MethodPost, "/orders", "/orders", user, `{"mitra_id":"x","service_type":"GetClean"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(h.CreateOrder, http.MethodPost, "/orders", "/orders", user, `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestAcceptHandler_ErrorMapping(t *testing.T) {
	mitra := &models.Account{ID: uuid.New(), Role: models.RoleMitra, Balance: -4000, OutstandingDebt: 4000, Blocked: true}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"blocked", ErrAccountBlocked, http.StatusForbidden},
		{"low balance", ErrInsufficientBalance, http.StatusPaymentRequired},
		{"wrong state", ErrInvalidTransition, http.StatusConflict},
		{"other mitra", ErrNotOwner, http.StatusNotFound},
		{"missing", ErrOrderNotFound, http.StatusNotFound},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{accept: func(uuid.UUID, uuid.UUID) (*models.Order, error) { return nil, tt.err }}
			h := newTestHandler(t, svc, stubMitras{})
			rec := serve(h.Accept, http.MethodPost, "/mitra/orders/{id}/accept",
				"/mitra/orders/"+uuid.NewString()+"/accept", mitra, "")
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAcceptHandler_BlockedBodyCarriesDebt(t *testing.T) {
	mitra := &models.Account{ID: uuid.New(), Role: models.RoleMitra, Balance: -4000, OutstandingDebt: 4000, Blocked: true}
	svc := &stubService{accept: func(uuid.UUID, uuid.UUID) (*models.Order, error) { return nil, ErrAccountBlocked }}
	h := newTestHandler(t, svc, stubMitras{})

	rec := serve(h.Accept, http.MethodPost, "/mitra/orders/{id}/accept", "/mitra/orders/"+uuid.NewString()+"/accept", mitra, "")
	body := decodeBody(t, rec)
	if body["outstanding_debt"] != float64(4000) {
		t.Errorf("expected outstanding_debt 4000, got %v", body["outstanding_debt"])
	}
}

func TestFinishHandler(t *testing.T) {
	mitra := &models.Account{ID: uuid.New(), Role: models.RoleMitra}
	orderID := uuid.New()

	t.Run("settled", func(t *testing.T) {
		svc := &stubService{finish: func(m, o uuid.UUID) (*Settlement, error) {
			if m != mitra.ID || o != orderID {
				t.Errorf("unexpected ids %s %s", m, o)
			}
			return &Settlement{
				Order:  &models.Order{ID: o, Status: models.OrderStatusCompleted},
				Result: billing.SettlementResult{BillableAmount: 125000, CommissionAmount: 31250, NewBalance: 68750},
			}, nil
		}}
		h := newTestHandler(t, svc, stubMitras{})
		rec := serve(h.Finish, http.MethodPost, "/mitra/orders/{id}/finish", "/mitra/orders/"+orderID.String()+"/finish", mitra, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := decodeBody(t, rec)["result"].(map[string]any)
		if result["commission_amount"] != float64(31250) {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("persistence failure is retryable", func(t *testing.T) {
		svc := &stubService{finish: func(uuid.UUID, uuid.UUID) (*Settlement, error) {
			return nil, fmt.Errorf("%w: commit: %v", ErrPersistence, errStoreDown)
		}}
		h := newTestHandler(t, svc, stubMitras{})
		rec := serve(h.Finish, http.MethodPost, "/mitra/orders/{id}/finish", "/mitra/orders/"+orderID.String()+"/finish", mitra, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}
	})

	t.Run("bad id", func(t *testing.T) {
		h := newTestHandler(t, &stubService{}, stubMitras{})
		rec := serve(h.Finish, http.MethodPost, "/mitra/orders/{id}/finish", "/mitra/orders/nope/finish", mitra, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("no account", func(t *testing.T) {
		h := newTestHandler(t, &stubService{}, stubMitras{})
		rec := serve(h.Finish, http.MethodPost, "/mitra/orders/{id}/finish", "/mitra/orders/"+orderID.String()+"/finish", nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestElapsedHandler(t *testing.T) {
	mitra := &models.Account{ID: uuid.New(), Role: models.RoleMitra}
	svc := &stubService{progress: func(_, o uuid.UUID) (*Progress, error) {
		return &Progress{OrderID: o, State: models.SessionWorking, ElapsedSeconds: 90, EstimatedAmount: 3125}, nil
	}}
	h := newTestHandler(t, svc, stubMitras{})
	rec := serve(h.Elapsed, http.MethodGet, "/mitra/orders/{id}/elapsed", "/mitra/orders/"+uuid.NewString()+"/elapsed", mitra, "")
	body := decodeBody(t, rec)
	if body["elapsed_seconds"] != float64(90) || body["estimated_amount"] != float64(3125) {
		t.Errorf("unexpected progress body %v", body)
	}
}

func TestListMitrasHandler(t *testing.T) {
	mitras := stubMitras{list: []*models.Account{
		{ID: uuid.New(), Name: "Budi", Expertise: models.ServiceGetBarber, Balance: 900000},
		{ID: uuid.New(), Name: "Sinta", Expertise: models.ServiceGetClean},
	}}
	h := newTestHandler(t, &stubService{}, mitras)

	rec := serve(h.ListMitras, http.MethodGet, "/mitras", "/mitras?service=GetBarber", &models.Account{ID: uuid.New()}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "balance") {
		t.Error("mitra balance must not be exposed to customers")
	}
	var list []MitraResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Budi" {
		t.Errorf("expected only Budi, got %+v", list)
	}

	rec = serve(h.ListMitras, http.MethodGet, "/mitras", "/mitras?service=GetLaundry", &models.Account{ID: uuid.New()}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown service, got %d", rec.Code)
	}
}
