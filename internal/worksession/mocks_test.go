package worksession

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/notify"
)

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called.
type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error)       { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error                 { return nil }
func (noopTx) Rollback(context.Context) error               { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// fakeTx buffers mock writes and applies them on Commit, so a rolled back
// transaction leaves the mocks untouched.
type fakeTx struct {
	noopTx
	pending []func()
}

func (t *fakeTx) Commit(context.Context) error {
	for _, fn := range t.pending {
		fn()
	}
	t.pending = nil
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.pending = nil
	return nil
}

// stage defers fn until tx commits.
func stage(tx pgx.Tx, fn func()) {
	if ft, ok := tx.(*fakeTx); ok {
		ft.pending = append(ft.pending, fn)
		return
	}
	fn()
}

type mockPool struct {
	err error
}

func (p mockPool) Begin(context.Context) (pgx.Tx, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &fakeTx{}, nil
}

// ---------------------------------------------------------------------------
// Stores
// ---------------------------------------------------------------------------

type mockOrders struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	updateErr error
}

func newMockOrders(orders ...*models.Order) *mockOrders {
	m := &mockOrders{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range orders {
		cp := *o
		m.orders[o.ID] = &cp
	}
	return m
}

func (m *mockOrders) CreateTx(_ context.Context, tx pgx.Tx, o *models.Order) error {
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.orders[cp.ID] = &cp
	})
	return nil
}

func (m *mockOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return m.get(id)
}

func (m *mockOrders) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Order, error) {
	return m.get(id)
}

func (m *mockOrders) get(id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) UpdateTx(_ context.Context, tx pgx.Tx, o *models.Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *o
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.orders[cp.ID] = &cp
	})
	return nil
}

func (m *mockOrders) HasWorkingSession(_ context.Context, _ pgx.Tx, mitraID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.MitraID == mitraID && o.SessionState() == models.SessionWorking {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrders) ListByMitra(_ context.Context, mitraID uuid.UUID) ([]*models.Order, error) {
	return m.filter(func(o *models.Order) bool { return o.MitraID == mitraID }), nil
}

func (m *mockOrders) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return m.filter(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (m *mockOrders) filter(keep func(*models.Order) bool) []*models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for _, o := range m.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockOrders) order(id uuid.UUID) *models.Order {
	o, _ := m.get(id)
	return o
}

// ---

type mockAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	setErr   error
}

func newMockAccounts(accs ...*models.Account) *mockAccounts {
	m := &mockAccounts{accounts: make(map[uuid.UUID]*models.Account)}
	for _, a := range accs {
		cp := *a
		m.accounts[a.ID] = &cp
	}
	return m
}

func (m *mockAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return m.get(id)
}

func (m *mockAccounts) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return m.get(id)
}

func (m *mockAccounts) get(id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccounts) SetBalanceState(_ context.Context, tx pgx.Tx, id uuid.UUID, balance int64, blocked bool, debt int64) error {
	if m.setErr != nil {
		return m.setErr
	}
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		a := m.accounts[id]
		a.Balance, a.Blocked, a.OutstandingDebt = balance, blocked, debt
	})
	return nil
}

func (m *mockAccounts) account(id uuid.UUID) *models.Account {
	a, _ := m.get(id)
	return a
}

// ---

type mockLedger struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
	err     error
}

func (m *mockLedger) CreateTx(_ context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	if m.err != nil {
		return m.err
	}
	cp := *e
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.entries = append(m.entries, &cp)
	})
	return nil
}

func (m *mockLedger) all() []*models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.LedgerEntry(nil), m.entries...)
}

// ---

type mockBlocks struct {
	mu     sync.Mutex
	opened []*models.BlockedAccount
}

func (m *mockBlocks) OpenTx(_ context.Context, tx pgx.Tx, b *models.BlockedAccount) error {
	cp := *b
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.opened = append(m.opened, &cp)
	})
	return nil
}

func (m *mockBlocks) all() []*models.BlockedAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.BlockedAccount(nil), m.opened...)
}

// ---

// notifier records notification jobs that reached a committed transaction.
type notifier struct {
	mu   sync.Mutex
	sent []notify.Args
}

func (n *notifier) insert(_ context.Context, tx pgx.Tx, args notify.Args) error {
	stage(tx, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.sent = append(n.sent, args)
	})
	return nil
}

func (n *notifier) all() []notify.Args {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Args(nil), n.sent...)
}

// ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStoreDown = errors.New("connection reset by peer")
