package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/getlife/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new account and fills in its generated fields.
func (r *Repository) Create(ctx context.Context, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, password_hash, name, phone, address, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING balance, created_at, updated_at
	`, a.ID, strings.ToLower(a.Email), a.PasswordHash, a.Name, a.Phone, a.Address, a.Role, a.Status).
		Scan(&a.Balance, &a.CreatedAt, &a.UpdatedAt)
}

// UpsertAdmin creates the admin account or resets its password. It returns
// pgx.ErrNoRows when the email belongs to a non-admin account.
func (r *Repository) UpsertAdmin(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, password_hash, name, role, status)
		VALUES ($1, $2, $3, $4, 'admin', 'active')
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()
		WHERE accounts.role = 'admin'
		RETURNING id, role, status, created_at, updated_at
	`, uuid.New(), strings.ToLower(a.Email), a.PasswordHash, a.Name).
		Scan(&a.ID, &a.Role, &a.Status, &a.CreatedAt, &a.UpdatedAt)
}

// GetByEmail returns the account with its password hash. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, status, balance, blocked, outstanding_debt
		FROM accounts WHERE email = $1
	`, strings.ToLower(email)).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.Status, &a.Balance,
		&a.Blocked, &a.OutstandingDebt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
