package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getlife/backend/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	Status          string `json:"status"`
	Blocked         bool   `json:"blocked"`
	Balance         int64  `json:"balance"`
	OutstandingDebt int64  `json:"outstanding_debt"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		http.Error(w, `{"error":"missing required fields"}`, http.StatusBadRequest)
		return
	}
	acc, err := h.svc.Register(r.Context(), RegisterInput{
		Email: req.Email, Password: req.Password, Name: req.Name, Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
		case errors.Is(err, ErrWeakPassword):
			http.Error(w, `{"error":"password too short"}`, http.StatusBadRequest)
		default:
			h.log.Error("register failed", "error", err)
			http.Error(w, `{"error":"registration failed"}`, http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(accountToResponse(acc))
}

// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"missing email or password"}`, http.StatusBadRequest)
		return
	}
	token, acc, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		case errors.Is(err, ErrNotVerified):
			http.Error(w, `{"error":"account not verified"}`, http.StatusForbidden)
		default:
			h.log.Error("login failed", "error", err)
			http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{
		Token:   token,
		Account: accountToResponse(acc),
	})
}

func accountToResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:              a.ID.String(),
		Email:           a.Email,
		Name:            a.Name,
		Role:            a.Role,
		Status:          a.Status,
		Blocked:         a.Blocked,
		Balance:         a.Balance,
		OutstandingDebt: a.OutstandingDebt,
	}
}
