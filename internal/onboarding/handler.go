package onboarding

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

type ApplicationRequest struct {
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Expertise string `json:"expertise"`
	Reason    string `json:"reason"`
	KTPURL    string `json:"ktp_url"`
}

type ApproveRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
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
	case errors.Is(err, ErrInvalidExpertise):
		http.Error(w, `{"error":"unknown expertise"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrWeakPassword):
		http.Error(w, `{"error":"password too short"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrApplicationNotFound):
		http.Error(w, `{"error":"application not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrAlreadyReviewed):
		http.Error(w, `{"error":"application already reviewed"}`, http.StatusConflict)
	case errors.Is(err, ErrDuplicateEmail):
		http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

// POST /api/v1/applications
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ApplicationRequest
	if err := h.validator.Decode(validation.Application, r.Body, &req); err != nil {
		h.writeError(w, "submit application", err)
		return
	}
	app, err := h.svc.Submit(r.Context(), SubmitInput{
		FullName: req.FullName, Phone: req.Phone, Address: req.Address,
		Expertise: req.Expertise, Reason: req.Reason, KTPURL: req.KTPURL,
	})
	if err != nil {
		h.writeError(w, "submit application", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": app.ID, "status": app.Status})
}

// GET /api/v1/admin/applications
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPending(r.Context())
	if err != nil {
		h.writeError(w, "list applications", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/admin/applications/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return
	}
	var req ApproveRequest
	if err := h.validator.Decode(validation.Approval, r.Body, &req); err != nil {
		h.writeError(w, "approve application", err)
		return
	}
	acc, err := h.svc.Approve(r.Context(), admin.ID, id, Credentials{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		h.writeError(w, "approve application", err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// POST /api/v1/admin/applications/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
		return
	}
	app, err := h.svc.Reject(r.Context(), admin.ID, id)
	if err != nil {
		h.writeError(w, "reject application", err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
