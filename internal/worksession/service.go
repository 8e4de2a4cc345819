// Package worksession drives an order through its work session: booking,
// acceptance, the running timer and settlement against the mitra balance.
package worksession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/getlife/backend/internal/billing"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/notify"
	"github.com/getlife/backend/internal/repository"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrMitraUnavailable    = errors.New("mitra is not available for this service")
	ErrInvalidServiceType  = errors.New("unknown service type")
	ErrNotOwner            = errors.New("order belongs to another account")
	ErrInvalidTransition   = errors.New("order is not in the required state")
	ErrAccountBlocked      = errors.New("account blocked")
	ErrInsufficientBalance = errors.New("balance below minimum to accept orders")
	ErrSessionActive       = errors.New("another session is already running")

	// ErrPersistence means the settlement was computed but could not be
	// stored. The order is still Working and the call can be retried.
	ErrPersistence = errors.New("settlement could not be saved")
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type OrderStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Order, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, o *models.Order) error
	HasWorkingSession(ctx context.Context, tx pgx.Tx, mitraID uuid.UUID) (bool, error)
	ListByMitra(ctx context.Context, mitraID uuid.UUID) ([]*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	SetBalanceState(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance int64, blocked bool, debt int64) error
}

type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
}

type BlockStore interface {
	OpenTx(ctx context.Context, tx pgx.Tx, b *models.BlockedAccount) error
}

// Settlement is what the mitra sees after finishing a session.
type Settlement struct {
	Order  *models.Order           `json:"order"`
	Result billing.SettlementResult `json:"result"`
}

// Progress is the display-only view of a running session.
type Progress struct {
	OrderID         uuid.UUID `json:"order_id"`
	State           string    `json:"state"`
	ElapsedSeconds  int64     `json:"elapsed_seconds"`
	EstimatedAmount int64     `json:"estimated_amount"`
}

type Service interface {
	CreateOrder(ctx context.Context, userID, mitraID uuid.UUID, serviceType, address string) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	Accept(ctx context.Context, mitraID, orderID uuid.UUID) (*models.Order, error)
	Start(ctx context.Context, mitraID, orderID uuid.UUID) (*models.Order, error)
	Finish(ctx context.Context, mitraID, orderID uuid.UUID) (*Settlement, error)
	Progress(ctx context.Context, mitraID, orderID uuid.UUID) (*Progress, error)
	Get(ctx context.Context, accountID, orderID uuid.UUID) (*models.Order, error)
	ListForMitra(ctx context.Context, mitraID uuid.UUID) ([]*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
}

type Deps struct {
	Pool             TxBeginner
	Orders           OrderStore
	Accounts         AccountStore
	Ledger           LedgerStore
	Blocks           BlockStore
	Calculator       *billing.Calculator
	Clock            billing.Clock
	MinAcceptBalance int64
	Notify           notify.InsertTxFunc
	Logger           *slog.Logger
}

type service struct {
	Deps
}

func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = billing.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &service{Deps: d}
}

var _ Service = (*service)(nil)

func (s *service) CreateOrder(ctx context.Context, userID, mitraID uuid.UUID, serviceType, address string) (*models.Order, error) {
	if !models.ServiceTypes[serviceType] {
		return nil, ErrInvalidServiceType
	}
	mitra, err := s.Accounts.GetByID(ctx, mitraID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrMitraUnavailable
		}
		return nil, err
	}
	if mitra.Role != models.RoleMitra || mitra.Status != models.AccountStatusVerified || mitra.Blocked ||
		mitra.Expertise != serviceType {
		return nil, ErrMitraUnavailable
	}
	o := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		MitraID:     mitraID,
		ServiceType: serviceType,
		UserAddress: address,
		Status:      models.OrderStatusAwaiting,
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	if err := s.Orders.CreateTx(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := s.Notify(ctx, tx, notify.Args{
		AccountID: mitraID,
		Event:     notify.KindOrderCreated,
		Title:     "Pesanan baru",
		Message:   fmt.Sprintf("Ada pesanan %s baru di %s.", serviceType, address),
		Type:      models.NotificationInfo,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel lets the customer withdraw an order the mitra has not accepted yet.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, func(tx pgx.Tx, o *models.Order) error {
		if o.UserID != userID {
			return ErrNotOwner
		}
		if o.SessionState() != models.SessionPending {
			return ErrInvalidTransition
		}
		o.Status = models.OrderStatusCancelled
		return s.Notify(ctx, tx, notify.Args{
			AccountID: o.MitraID,
			Event:     notify.KindOrderCancelled,
			Title:     "Pesanan dibatalkan",
			Message:   fmt.Sprintf("Pesanan %s dibatalkan oleh pelanggan.", o.ServiceType),
			Type:      models.NotificationWarning,
		})
	})
}

// Accept moves Pending to Accepted. The mitra must not be blocked and must
// hold at least MinAcceptBalance.
func (s *service) Accept(ctx context.Context, mitraID, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, func(tx pgx.Tx, o *models.Order) error {
		if o.MitraID != mitraID {
			return ErrNotOwner
		}
		if o.SessionState() != models.SessionPending {
			return ErrInvalidTransition
		}
		acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, mitraID)
		if err != nil {
			return err
		}
		if acc.Blocked {
			return ErrAccountBlocked
		}
		if acc.Balance < s.MinAcceptBalance {
			return ErrInsufficientBalance
		}
		now := s.Clock.Now()
		o.Status = models.OrderStatusInProgress
		o.AcceptedAt = &now
		return s.Notify(ctx, tx, notify.Args{
			AccountID: o.UserID,
			Event:     notify.KindOrderAccepted,
			Title:     "Pesanan diterima",
			Message:   fmt.Sprintf("Mitra menerima pesanan %s Anda.", o.ServiceType),
			Type:      models.NotificationSuccess,
		})
	})
}

// Start moves Accepted to Working and records the start timestamp.
func (s *service) Start(ctx context.Context, mitraID, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.transition(ctx, orderID, func(tx pgx.Tx, o *models.Order) error {
		if o.MitraID != mitraID {
			return ErrNotOwner
		}
		if o.SessionState() != models.SessionAccepted {
			return ErrInvalidTransition
		}
		acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, mitraID)
		if err != nil {
			return err
		}
		if acc.Blocked {
			return ErrAccountBlocked
		}
		busy, err := s.Orders.HasWorkingSession(ctx, tx, mitraID)
		if err != nil {
			return err
		}
		if busy {
			return ErrSessionActive
		}
		now := s.Clock.Now()
		o.StartedAt = &now
		return nil
	})
	if repository.IsUniqueViolation(err, repository.WorkingSessionIndex) {
		return nil, ErrSessionActive
	}
	return o, err
}

// Finish settles a Working session. Elapsed time comes from the stored start
// and the clock, the balance is read under row lock, and the order, account,
// ledger, block record and notification are written in one transaction.
func (s *service) Finish(ctx context.Context, mitraID, orderID uuid.UUID) (*Settlement, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	o, err := s.Orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: load order: %v", ErrPersistence, err)
	}
	if o.MitraID != mitraID {
		return nil, ErrNotOwner
	}
	if o.SessionState() != models.SessionWorking {
		return nil, ErrInvalidTransition
	}
	acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, mitraID)
	if err != nil {
		return nil, fmt.Errorf("%w: load account: %v", ErrPersistence, err)
	}

	end := s.Clock.Now()
	elapsed := billing.ElapsedSeconds(*o.StartedAt, end)
	res, err := s.Calculator.Settle(elapsed, acc.Balance)
	if err != nil {
		return nil, err
	}

	o.EndedAt = &end
	o.ElapsedSeconds = elapsed
	o.TotalAmount = res.BillableAmount
	o.AdminFee = res.CommissionAmount
	o.MitraEarnings = res.ProviderEarnings()
	o.Status = models.OrderStatusCompleted
	if res.ShouldBlock {
		o.Status = models.OrderStatusBlocked
	}

	if err := s.applySettlement(ctx, tx, o, res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}

	s.Logger.Info("session settled",
		"order_id", o.ID, "mitra_id", mitraID, "elapsed_seconds", elapsed,
		"billable", res.BillableAmount, "commission", res.CommissionAmount,
		"new_balance", res.NewBalance, "blocked", res.ShouldBlock)
	return &Settlement{Order: o, Result: res}, nil
}

func (s *service) applySettlement(ctx context.Context, tx pgx.Tx, o *models.Order, res billing.SettlementResult) error {
	if err := s.Orders.UpdateTx(ctx, tx, o); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if err := s.Accounts.SetBalanceState(ctx, tx, o.MitraID, res.NewBalance, res.ShouldBlock, res.OutstandingDebt()); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if res.CommissionAmount != 0 {
		if err := s.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
			AccountID:    o.MitraID,
			OrderID:      &o.ID,
			EntryType:    models.LedgerEntryCommission,
			Amount:       -res.CommissionAmount,
			BalanceAfter: res.NewBalance,
		}); err != nil {
			return fmt.Errorf("ledger entry: %w", err)
		}
	}

	if !res.ShouldBlock {
		if err := s.Notify(ctx, tx, notify.Args{
			AccountID: o.UserID,
			Event:     notify.KindOrderCompleted,
			Title:     "Pesanan selesai",
			Message:   fmt.Sprintf("Layanan %s selesai. Total biaya Rp %d.", o.ServiceType, res.BillableAmount),
			Type:      models.NotificationSuccess,
		}); err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
		return nil
	}

	if err := s.Blocks.OpenTx(ctx, tx, &models.BlockedAccount{
		AccountID:  o.MitraID,
		OrderID:    &o.ID,
		Reason:     "negative balance after settlement",
		DebtAmount: res.OutstandingDebt(),
		BlockedAt:  *o.EndedAt,
	}); err != nil {
		return fmt.Errorf("record block: %w", err)
	}
	if err := s.Notify(ctx, tx, notify.Args{
		AccountID: o.MitraID,
		Event:     notify.KindAccountBlocked,
		Title:     "Akun diblokir",
		Message:   fmt.Sprintf("Saldo Anda minus. Lunasi tunggakan Rp %d untuk membuka blokir.", res.OutstandingDebt()),
		Type:      models.NotificationError,
	}); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Progress reports the running time for display. Billing never reads it.
func (s *service) Progress(ctx context.Context, mitraID, orderID uuid.UUID) (*Progress, error) {
	o, err := s.Get(ctx, mitraID, orderID)
	if err != nil {
		return nil, err
	}
	p := &Progress{OrderID: o.ID, State: o.SessionState()}
	switch {
	case p.State == models.SessionWorking:
		p.ElapsedSeconds = billing.ElapsedSeconds(*o.StartedAt, s.Clock.Now())
		if p.EstimatedAmount, err = s.Calculator.Billable(p.ElapsedSeconds); err != nil {
			return nil, err
		}
	case o.EndedAt != nil:
		p.ElapsedSeconds = o.ElapsedSeconds
		p.EstimatedAmount = o.TotalAmount
	}
	return p, nil
}

// Get returns an order visible to accountID, as customer or mitra.
func (s *service) Get(ctx context.Context, accountID, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.UserID != accountID && o.MitraID != accountID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListForMitra(ctx context.Context, mitraID uuid.UUID) ([]*models.Order, error) {
	list, err := s.Orders.ListByMitra(ctx, mitraID)
	if list == nil && err == nil {
		list = []*models.Order{}
	}
	return list, err
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	list, err := s.Orders.ListByUser(ctx, userID)
	if list == nil && err == nil {
		list = []*models.Order{}
	}
	return list, err
}

// transition locks the order, lets fn mutate it, writes it back and commits.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, fn func(tx pgx.Tx, o *models.Order) error) (*models.Order, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := s.Orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := fn(tx, o); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateTx(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}
