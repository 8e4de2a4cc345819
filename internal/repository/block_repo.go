package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/getlife/backend/internal/models"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

// OpenTx records a block. If the account already has an open block the
// debt on it is replaced.
func (r *BlockRepo) OpenTx(ctx context.Context, tx pgx.Tx, b *models.BlockedAccount) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return tx.QueryRow(ctx, `
		INSERT INTO blocked_accounts (id, account_id, order_id, reason, debt_amount, blocked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) WHERE unblocked_at IS NULL
		DO UPDATE SET debt_amount = EXCLUDED.debt_amount, order_id = EXCLUDED.order_id, reason = EXCLUDED.reason
		RETURNING id
	`, b.ID, b.AccountID, b.OrderID, b.Reason, b.DebtAmount, b.BlockedAt).Scan(&b.ID)
}

// CloseTx stamps unblocked_at on the open block, if any.
func (r *BlockRepo) CloseTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE blocked_accounts SET unblocked_at = $2 WHERE account_id = $1 AND unblocked_at IS NULL
	`, accountID, at)
	return err
}

func (r *BlockRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.BlockedAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, order_id, reason, debt_amount, blocked_at, unblocked_at
		FROM blocked_accounts WHERE account_id = $1 ORDER BY blocked_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BlockedAccount
	for rows.Next() {
		var b models.BlockedAccount
		if err := rows.Scan(&b.ID, &b.AccountID, &b.OrderID, &b.Reason, &b.DebtAmount, &b.BlockedAt, &b.UnblockedAt); err != nil {
			return nil, err
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
