// Package dashboard serves the read-mostly account views: profile, ledger
// history, mitra statistics and the admin overview.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/getlife/backend/internal/billing"
	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/validation"
)

// Reporting periods accepted by the ?period= query parameter.
const (
	PeriodAll   = "all"
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

var ErrInvalidPeriod = errors.New("period must be day, week, month or all")

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateProfile(ctx context.Context, a *models.Account) error
	List(ctx context.Context) ([]*models.Account, error)
}

type LedgerLister interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID, since time.Time) ([]*models.LedgerEntry, error)
}

type BlockLister interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.BlockedAccount, error)
}

type StatsStore interface {
	MitraStats(ctx context.Context, mitraID uuid.UUID, since time.Time) (*models.MitraStats, error)
	PlatformEarnings(ctx context.Context, since time.Time) (*models.PlatformEarnings, error)
}

type ProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// MeResponse is the account as its owner sees it, with block history for
// mitras so the restricted screen can show why they were blocked.
type MeResponse struct {
	*models.Account
	Blocks []*models.BlockedAccount `json:"blocks,omitempty"`
}

type Deps struct {
	Accounts  AccountStore
	Entries   LedgerLister
	Blocks    BlockLister
	Stats     StatsStore
	Validator *validation.Validator
	Clock     billing.Clock
	Location  *time.Location
	Logger    *slog.Logger
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = billing.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{Deps: d}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// PeriodStart returns the first instant of the named period containing now.
// "week" is the last seven calendar days including today. An empty period or
// "all" yields the zero time.
func PeriodStart(period string, now time.Time, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch period {
	case "", PeriodAll:
		return time.Time{}, nil
	case PeriodDay:
		return midnight, nil
	case PeriodWeek:
		return midnight.AddDate(0, 0, -6), nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), nil
	default:
		return time.Time{}, ErrInvalidPeriod
	}
}

func (h *Handler) since(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	t, err := PeriodStart(r.URL.Query().Get("period"), h.Clock.Now(), h.Location)
	if err != nil {
		http.Error(w, `{"error":"period must be day, week, month or all"}`, http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

// GET /api/v1/account/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	resp := MeResponse{Account: acc}
	if acc.Role == models.RoleMitra {
		blocks, err := h.Blocks.ListByAccountID(r.Context(), acc.ID)
		if err != nil {
			h.Logger.Error("list blocks failed", "account_id", acc.ID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		resp.Blocks = blocks
	}
	writeJSON(w, http.StatusOK, resp)
}

// PATCH /api/v1/account/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req ProfileRequest
	if err := h.Validator.Decode(validation.Profile, r.Body, &req); err != nil {
		if errors.Is(err, validation.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	updated := *acc
	updated.Name, updated.Phone, updated.Address = req.Name, req.Phone, req.Address
	if err := h.Accounts.UpdateProfile(r.Context(), &updated); err != nil {
		h.Logger.Error("update profile failed", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

// GET /api/v1/ledger?period=week
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	since, ok := h.since(w, r)
	if !ok {
		return
	}
	entries, err := h.Entries.ListByAccountID(r.Context(), acc.ID, since)
	if err != nil {
		h.Logger.Error("list ledger failed", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GET /api/v1/mitra/statistics?period=month
func (h *Handler) MitraStatistics(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	since, ok := h.since(w, r)
	if !ok {
		return
	}
	stats, err := h.Stats.MitraStats(r.Context(), acc.ID, since)
	if err != nil {
		h.Logger.Error("mitra statistics failed", "account_id", acc.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statistics":       stats,
		"balance":          acc.Balance,
		"blocked":          acc.Blocked,
		"outstanding_debt": acc.OutstandingDebt,
	})
}

// GET /api/v1/admin/accounts
func (h *Handler) AdminAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.List(r.Context())
	if err != nil {
		h.Logger.Error("list accounts failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Account{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/admin/earnings?period=day
func (h *Handler) AdminEarnings(w http.ResponseWriter, r *http.Request) {
	since, ok := h.since(w, r)
	if !ok {
		return
	}
	e, err := h.Stats.PlatformEarnings(r.Context(), since)
	if err != nil {
		h.Logger.Error("platform earnings failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
