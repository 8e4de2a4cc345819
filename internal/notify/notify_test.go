package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/models"
)

type memRepo struct {
	mu    sync.Mutex
	items []*models.Notification
	err   error
}

func (m *memRepo) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	n.ID = uuid.New()
	m.items = append(m.items, n)
	return nil
}

func (m *memRepo) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Notification
	for _, n := range m.items {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memRepo) MarkRead(_ context.Context, accountID, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id && n.AccountID == accountID {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) MarkAllRead(_ context.Context, accountID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.items {
		if n.AccountID == accountID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (m *memRepo) CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error) {
	list, err := m.ListByAccountID(ctx, accountID)
	var count int64
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count, err
}

func work(t *testing.T, w *Worker, args Args) error {
	t.Helper()
	return w.Work(context.Background(), &river.Job[Args]{Args: args})
}

func TestWorker_StoresNotification(t *testing.T) {
	repo := &memRepo{}
	acc := uuid.New()

	err := work(t, NewWorker(repo), Args{AccountID: acc, Event: KindOrderCompleted, Title: "Pekerjaan selesai", Message: "Rp125.000"})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)
	assert.Equal(t, acc, repo.items[0].AccountID)
	assert.Equal(t, KindOrderCompleted, repo.items[0].Kind)
	assert.Equal(t, models.NotificationInfo, repo.items[0].Type, "empty type defaults to info")
}

func TestWorker_CancelsWithoutAccount(t *testing.T) {
	repo := &memRepo{}
	err := work(t, NewWorker(repo), Args{Event: KindAccountBlocked})
	require.Error(t, err)
	assert.Empty(t, repo.items)
}

func TestWorker_StoreFailureRetries(t *testing.T) {
	repo := &memRepo{err: errors.New("connection reset")}
	err := work(t, NewWorker(repo), Args{AccountID: uuid.New(), Event: KindTopupApproved})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store notification")
}

func TestService_ListCountsUnread(t *testing.T) {
	repo := &memRepo{}
	acc := uuid.New()
	w := NewWorker(repo)
	for range 3 {
		require.NoError(t, work(t, w, Args{AccountID: acc, Event: KindOrderCreated}))
	}
	require.NoError(t, work(t, w, Args{AccountID: uuid.New(), Event: KindOrderCreated}))

	svc := NewService(repo)
	require.NoError(t, svc.MarkRead(context.Background(), acc, repo.items[0].ID))

	list, unread, err := svc.List(context.Background(), acc)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, int64(2), unread)

	n, err := svc.MarkAllRead(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestService_MarkReadOtherAccount(t *testing.T) {
	repo := &memRepo{}
	require.NoError(t, work(t, NewWorker(repo), Args{AccountID: uuid.New(), Event: KindOrderCreated}))

	err := NewService(repo).MarkRead(context.Background(), uuid.New(), repo.items[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_EmptyListNotNil(t *testing.T) {
	list, unread, err := NewService(&memRepo{}).List(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Zero(t, unread)
}

func TestHandler_MarkRead(t *testing.T) {
	repo := &memRepo{}
	acc := &models.Account{ID: uuid.New(), Role: models.RoleUser}
	require.NoError(t, work(t, NewWorker(repo), Args{AccountID: acc.ID, Event: KindOrderAccepted}))
	h := NewHandler(NewService(repo), nil)

	r := chi.NewRouter()
	r.Post("/notifications/{id}/read", h.MarkRead)

	tests := []struct {
		name string
		id   string
		acc  *models.Account
		want int
	}{
		{"own notification", repo.items[0].ID.String(), acc, http.StatusNoContent},
		{"unknown id", uuid.NewString(), acc, http.StatusNotFound},
		{"bad id", "abc", acc, http.StatusBadRequest},
		{"no account", repo.items[0].ID.String(), nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/notifications/"+tt.id+"/read", nil)
			if tt.acc != nil {
				req = req.WithContext(middleware.WithAccount(req.Context(), tt.acc))
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
