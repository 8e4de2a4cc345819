package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/getlife/backend/internal/models"
)

const transactionColumns = `id, account_id, kind, amount, status, transfer_proof, order_id, reviewed_by, reviewed_at, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Status, &t.TransferProof, &t.OrderID,
		&t.ReviewedBy, &t.ReviewedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount, status, transfer_proof, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Kind, t.Amount, t.Status, t.TransferProof, t.OrderID).Scan(&t.CreatedAt)
}

// GetByIDForUpdate locks the transaction row. Call within a transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

// SetReviewedTx records the admin decision on t.
func (r *TransactionRepo) SetReviewedTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET status = $2, reviewed_by = $3, reviewed_at = $4 WHERE id = $1
	`, t.ID, t.Status, t.ReviewedBy, t.ReviewedAt)
	return err
}

func (r *TransactionRepo) ListPending(ctx context.Context) ([]*models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE status = 'pending' ORDER BY created_at`)
}

func (r *TransactionRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
