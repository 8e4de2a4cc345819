package wallet

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/validation"
)

type TopupRequest struct {
	Amount        int64  `json:"amount"`
	TransferProof string `json:"transfer_proof"`
}

type TransferRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

type Handler struct {
	svc       Service
	validator *validation.Validator
	log       *slog.Logger
}

func NewHandler(svc Service, v *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: v, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, validation.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, validation.ErrMalformed):
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidAmount):
		http.Error(w, `{"error":"amount must be positive"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrTopupNotFound):
		http.Error(w, `{"error":"top-up not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrAccountNotFound):
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrAlreadyReviewed):
		http.Error(w, `{"error":"top-up already reviewed"}`, http.StatusConflict)
	case errors.Is(err, ErrNotBlocked):
		http.Error(w, `{"error":"account is not blocked"}`, http.StatusConflict)
	case errors.Is(err, ErrDebtOutstanding):
		http.Error(w, `{"error":"outstanding debt must be cleared before unblocking"}`, http.StatusConflict)
	case errors.Is(err, ErrAdminAccount):
		http.Error(w, `{"error":"admin accounts hold no balance"}`, http.StatusUnprocessableEntity)
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/v1/topups
func (h *Handler) RequestTopup(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req TopupRequest
	if err := h.validator.Decode(validation.Topup, r.Body, &req); err != nil {
		h.writeError(w, "request top-up", err)
		return
	}
	t, err := h.svc.RequestTopup(r.Context(), acc.ID, req.Amount, req.TransferProof)
	if err != nil {
		h.writeError(w, "request top-up", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GET /api/v1/topups
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListForAccount(r.Context(), acc.ID)
	if err != nil {
		h.writeError(w, "list top-ups", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/admin/topups
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.writeError(w, "list pending top-ups", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/admin/topups/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.ApproveTopup(r.Context(), admin.ID, id)
	if err != nil {
		h.writeError(w, "approve top-up", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// POST /api/v1/admin/topups/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.RejectTopup(r.Context(), admin.ID, id)
	if err != nil {
		h.writeError(w, "reject top-up", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// POST /api/v1/admin/accounts/{id}/transfer
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if err := h.validator.Decode(validation.Transfer, r.Body, &req); err != nil {
		h.writeError(w, "transfer", err)
		return
	}
	entry, err := h.svc.Transfer(r.Context(), admin.ID, id, req.Amount)
	if err != nil {
		h.writeError(w, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// POST /api/v1/admin/accounts/{id}/unblock
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	acc, err := h.svc.Unblock(r.Context(), admin.ID, id)
	if err != nil {
		h.writeError(w, "unblock", err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}
