package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/getlife/backend/internal/models"
)

const accountColumns = `id, email, name, phone, address, password_hash, role, status, expertise,
	balance, blocked, outstanding_debt, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.Address, &a.PasswordHash, &a.Role, &a.Status,
		&a.Expertise, &a.Balance, &a.Blocked, &a.OutstandingDebt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Begin starts a transaction on the underlying pool.
func (r *AccountRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts an account inside the given transaction.
func (r *AccountRepo) CreateTx(ctx context.Context, tx pgx.Tx, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return tx.QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, phone, address, password_hash, role, status, expertise, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.Name, a.Phone, a.Address, a.PasswordHash, a.Role, a.Status, a.Expertise, a.Balance).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

// UpdateProfile writes the self-editable contact fields.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		UPDATE accounts SET name = $2, phone = $3, address = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.Name, a.Phone, a.Address).Scan(&a.UpdatedAt)
}

// List returns every customer and mitra account, newest first.
func (r *AccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE role <> 'admin' ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ListMitras returns verified mitras for a service type. Blocked mitras are
// left out so customers cannot book them.
func (r *AccountRepo) ListMitras(ctx context.Context, serviceType string) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE role = 'mitra' AND status = 'verified' AND NOT blocked AND ($1 = '' OR expertise = $1)
		ORDER BY name
	`, serviceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// SetBalanceState writes the outcome of a settlement. Call after
// GetByIDForUpdate in the same tx.
func (r *AccountRepo) SetBalanceState(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance int64, blocked bool, debt int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = $2, blocked = $3, outstanding_debt = $4, updated_at = now()
		WHERE id = $1
	`, id, balance, blocked, debt)
	return err
}

// AddBalance credits amount and returns the new balance. The blocked flag
// is left alone; only an admin unblock clears it.
func (r *AccountRepo) AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $1,
		    outstanding_debt = GREATEST(0, -(balance + $1)),
		    updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// Unblock clears the blocked flag. Callers check the balance first.
func (r *AccountRepo) Unblock(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts SET blocked = FALSE, outstanding_debt = 0, updated_at = now() WHERE id = $1
	`, id)
	return err
}
