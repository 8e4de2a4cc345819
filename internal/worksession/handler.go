package worksession

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/getlife/backend/internal/billing"
	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/validation"
)

// MitraLister lists bookable mitras for the customer's picker.
type MitraLister interface {
	ListMitras(ctx context.Context, serviceType string) ([]*models.Account, error)
}

type CreateOrderRequest struct {
	MitraID     string `json:"mitra_id"`
	ServiceType string `json:"service_type"`
	UserAddress string `json:"user_address"`
}

// MitraResponse is the public view of a mitra; balance and debt stay private.
type MitraResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Expertise string    `json:"expertise"`
}

type Handler struct {
	svc              Service
	mitras           MitraLister
	validator        *validation.Validator
	minAcceptBalance int64
	log              *slog.Logger
}

func NewHandler(svc Service, mitras MitraLister, v *validation.Validator, minAcceptBalance int64, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, mitras: mitras, validator: v, minAcceptBalance: minAcceptBalance, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrNotOwner):
		http.Error(w, `{"error":"order not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, `{"error":"order is not in the required state"}`, http.StatusConflict)
	case errors.Is(err, ErrSessionActive):
		http.Error(w, `{"error":"another session is already running"}`, http.StatusConflict)
	case errors.Is(err, ErrMitraUnavailable):
		http.Error(w, `{"error":"mitra is not available for this service"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrInvalidServiceType):
		http.Error(w, `{"error":"unknown service type"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrInsufficientBalance):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":       "balance below minimum to accept orders",
			"min_balance": h.minAcceptBalance,
		})
	case errors.Is(err, ErrAccountBlocked):
		body := map[string]any{"error": "account blocked"}
		if acc := middleware.AccountFromCtx(r.Context()); acc != nil {
			body["outstanding_debt"] = acc.OutstandingDebt
			body["balance"] = acc.Balance
		}
		writeJSON(w, http.StatusForbidden, body)
	case errors.Is(err, ErrPersistence):
		h.log.Error(op+" failed", "error", err)
		w.Header().Set("Retry-After", "1")
		http.Error(w, `{"error":"settlement could not be saved, retry"}`, http.StatusServiceUnavailable)
	case errors.Is(err, billing.ErrAmountOutOfRange):
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"amount out of range"}`, http.StatusUnprocessableEntity)
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid order id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/v1/mitras?service=GetClean
func (h *Handler) ListMitras(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	if service != "" && !models.ServiceTypes[service] {
		http.Error(w, `{"error":"unknown service type"}`, http.StatusBadRequest)
		return
	}
	list, err := h.mitras.ListMitras(r.Context(), service)
	if err != nil {
		h.log.Error("list mitras failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	out := make([]MitraResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MitraResponse{ID: m.ID, Name: m.Name, Phone: m.Phone, Expertise: m.Expertise})
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/v1/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req CreateOrderRequest
	if err := h.validator.Decode(validation.Order, r.Body, &req); err != nil {
		if errors.Is(err, validation.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	mitraID, err := uuid.Parse(req.MitraID)
	if err != nil {
		http.Error(w, `{"error":"invalid mitra_id"}`, http.StatusBadRequest)
		return
	}
	o, err := h.svc.CreateOrder(r.Context(), acc.ID, mitraID, req.ServiceType, req.UserAddress)
	if err != nil {
		h.writeError(w, r, "create order", err)
		return
	}
	h.log.Info("order created", "order_id", o.ID, "user_id", acc.ID, "mitra_id", mitraID)
	writeJSON(w, http.StatusCreated, o)
}

// GET /api/v1/orders
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListForUser(r.Context(), acc.ID)
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.svc.Get(r.Context(), acc.ID, id)
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// POST /api/v1/orders/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "cancel order", h.svc.Cancel)
}

// GET /api/v1/mitra/orders
func (h *Handler) ListForMitra(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListForMitra(r.Context(), acc.ID)
	if err != nil {
		h.writeError(w, r, "list mitra orders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/mitra/orders/{id}/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "accept order", h.svc.Accept)
}

// POST /api/v1/mitra/orders/{id}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "start session", h.svc.Start)
}

// POST /api/v1/mitra/orders/{id}/finish
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Finish(r.Context(), acc.ID, id)
	if err != nil {
		h.writeError(w, r, "finish session", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /api/v1/mitra/orders/{id}/elapsed
func (h *Handler) Elapsed(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Progress(r.Context(), acc.ID, id)
	if err != nil {
		h.writeError(w, r, "session progress", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, accountID, orderID uuid.UUID) (*models.Order, error)) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := fn(r.Context(), acc.ID, id)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	h.log.Info(op, "order_id", o.ID, "account_id", acc.ID, "status", o.Status)
	writeJSON(w, http.StatusOK, o)
}
