// Package wallet moves money into mitra and customer balances: top-up
// requests reviewed by an admin, direct admin transfers, and lifting a
// debt block once the balance is back at zero or above.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/getlife/backend/internal/billing"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/notify"
	"github.com/getlife/backend/internal/repository"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrTopupNotFound   = errors.New("top-up not found")
	ErrAlreadyReviewed = errors.New("top-up already reviewed")
	ErrAccountNotFound = errors.New("account not found")
	ErrNotBlocked      = errors.New("account is not blocked")
	ErrDebtOutstanding = errors.New("outstanding debt must be cleared before unblocking")
	ErrAdminAccount    = errors.New("admin accounts hold no balance")
)

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error)
	SetReviewedTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	ListPending(ctx context.Context) ([]*models.Transaction, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error)
}

type AccountStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	Unblock(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
}

type BlockStore interface {
	CloseTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error
}

type Service interface {
	RequestTopup(ctx context.Context, accountID uuid.UUID, amount int64, transferProof string) (*models.Transaction, error)
	ListPending(ctx context.Context) ([]*models.Transaction, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error)
	ApproveTopup(ctx context.Context, adminID, txID uuid.UUID) (*models.Transaction, error)
	RejectTopup(ctx context.Context, adminID, txID uuid.UUID) (*models.Transaction, error)
	Transfer(ctx context.Context, adminID, accountID uuid.UUID, amount int64) (*models.LedgerEntry, error)
	Unblock(ctx context.Context, adminID, accountID uuid.UUID) (*models.Account, error)
}

type Deps struct {
	Pool         TxBeginner
	Transactions TransactionStore
	Accounts     AccountStore
	Ledger       LedgerStore
	Blocks       BlockStore
	Clock        billing.Clock
	Notify       notify.InsertTxFunc
	Logger       *slog.Logger
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

func (s *service) RequestTopup(ctx context.Context, accountID uuid.UUID, amount int64, transferProof string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	t := &models.Transaction{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          models.TransactionTopup,
		Amount:        amount,
		Status:        models.TransactionPending,
		TransferProof: transferProof,
	}
	if err := s.Transactions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create top-up: %w", err)
	}
	return t, nil
}

func (s *service) ListPending(ctx context.Context) ([]*models.Transaction, error) {
	return nonNil(s.Transactions.ListPending(ctx))
}

func (s *service) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	return nonNil(s.Transactions.ListByAccountID(ctx, accountID))
}

// ApproveTopup credits the requested amount. The blocked flag is not
// touched even when the credit clears the debt; unblocking is an explicit
// admin action.
func (s *service) ApproveTopup(ctx context.Context, adminID, txID uuid.UUID) (*models.Transaction, error) {
	return s.review(ctx, adminID, txID, models.TransactionApproved, func(tx pgx.Tx, t *models.Transaction) error {
		balance, err := s.Accounts.AddBalance(ctx, tx, t.AccountID, t.Amount)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}
		if err := s.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
			AccountID:    t.AccountID,
			EntryType:    models.LedgerEntryTopup,
			Amount:       t.Amount,
			BalanceAfter: balance,
		}); err != nil {
			return fmt.Errorf("ledger entry: %w", err)
		}
		return s.Notify(ctx, tx, notify.Args{
			AccountID: t.AccountID,
			Event:     notify.KindTopupApproved,
			Title:     "Top up disetujui",
			Message:   fmt.Sprintf("Top up Rp %d sudah masuk. Saldo sekarang Rp %d.", t.Amount, balance),
			Type:      models.NotificationSuccess,
		})
	})
}

func (s *service) RejectTopup(ctx context.Context, adminID, txID uuid.UUID) (*models.Transaction, error) {
	return s.review(ctx, adminID, txID, models.TransactionRejected, func(tx pgx.Tx, t *models.Transaction) error {
		return s.Notify(ctx, tx, notify.Args{
			AccountID: t.AccountID,
			Event:     notify.KindTopupRejected,
			Title:     "Top up ditolak",
			Message:   fmt.Sprintf("Top up Rp %d ditolak. Periksa kembali bukti transfer Anda.", t.Amount),
			Type:      models.NotificationError,
		})
	})
}

// review locks a pending top-up, runs fn and stamps the decision.
func (s *service) review(ctx context.Context, adminID, txID uuid.UUID, status string, fn func(tx pgx.Tx, t *models.Transaction) error) (*models.Transaction, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t, err := s.Transactions.GetByIDForUpdate(ctx, tx, txID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTopupNotFound
		}
		return nil, err
	}
	if t.Kind != models.TransactionTopup {
		return nil, ErrTopupNotFound
	}
	if t.Status != models.TransactionPending {
		return nil, ErrAlreadyReviewed
	}
	if err := fn(tx, t); err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	t.Status, t.ReviewedBy, t.ReviewedAt = status, &adminID, &now
	if err := s.Transactions.SetReviewedTx(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("record review: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("top-up reviewed", "transaction_id", t.ID, "account_id", t.AccountID,
		"amount", t.Amount, "status", status, "admin_id", adminID)
	return t, nil
}

// Transfer credits an account directly, e.g. for a payment received outside
// the top-up flow.
func (s *service) Transfer(ctx context.Context, adminID, accountID uuid.UUID, amount int64) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acc, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Role == models.RoleAdmin {
		return nil, ErrAdminAccount
	}
	balance, err := s.Accounts.AddBalance(ctx, tx, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	entry := &models.LedgerEntry{
		AccountID:    accountID,
		EntryType:    models.LedgerEntryAdminTransfer,
		Amount:       amount,
		BalanceAfter: balance,
	}
	if err := s.Ledger.CreateTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("ledger entry: %w", err)
	}
	if err := s.Notify(ctx, tx, notify.Args{
		AccountID: accountID,
		Event:     notify.KindBalanceTransferred,
		Title:     "Saldo ditambahkan",
		Message:   fmt.Sprintf("Admin menambahkan saldo Rp %d. Saldo sekarang Rp %d.", amount, balance),
		Type:      models.NotificationSuccess,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("balance transferred", "account_id", accountID, "amount", amount, "admin_id", adminID)
	return entry, nil
}

// Unblock lifts a debt block. The balance must already be non-negative.
func (s *service) Unblock(ctx context.Context, adminID, accountID uuid.UUID) (*models.Account, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acc, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if !acc.Blocked {
		return nil, ErrNotBlocked
	}
	if acc.Balance < 0 {
		return nil, ErrDebtOutstanding
	}
	if err := s.Accounts.Unblock(ctx, tx, accountID); err != nil {
		return nil, fmt.Errorf("unblock: %w", err)
	}
	if err := s.Blocks.CloseTx(ctx, tx, accountID, s.Clock.Now()); err != nil {
		return nil, fmt.Errorf("close block record: %w", err)
	}
	if err := s.Notify(ctx, tx, notify.Args{
		AccountID: accountID,
		Event:     notify.KindAccountUnblocked,
		Title:     "Akun aktif kembali",
		Message:   "Tunggakan sudah lunas. Anda bisa menerima pesanan lagi.",
		Type:      models.NotificationSuccess,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	acc.Blocked, acc.OutstandingDebt = false, 0
	s.Logger.Info("account unblocked", "account_id", accountID, "admin_id", adminID)
	return acc, nil
}

func (s *service) lockAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

func nonNil(list []*models.Transaction, err error) ([]*models.Transaction, error) {
	if list == nil && err == nil {
		list = []*models.Transaction{}
	}
	return list, err
}
