package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/getlife/backend/internal/models"
)

const applicationColumns = `id, full_name, phone, address, expertise, reason, ktp_url, status, account_id,
	reviewed_by, reviewed_at, created_at`

func scanApplication(row rowScanner) (*models.MitraApplication, error) {
	var a models.MitraApplication
	err := row.Scan(&a.ID, &a.FullName, &a.Phone, &a.Address, &a.Expertise, &a.Reason, &a.KTPURL, &a.Status,
		&a.AccountID, &a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

func (r *ApplicationRepo) Create(ctx context.Context, a *models.MitraApplication) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO mitra_applications (id, full_name, phone, address, expertise, reason, ktp_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, a.ID, a.FullName, a.Phone, a.Address, a.Expertise, a.Reason, a.KTPURL, a.Status).Scan(&a.CreatedAt)
}

func (r *ApplicationRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MitraApplication, error) {
	return scanApplication(tx.QueryRow(ctx, `SELECT `+applicationColumns+` FROM mitra_applications WHERE id = $1 FOR UPDATE`, id))
}

// SetReviewedTx stores the decision and, on approval, the created account.
func (r *ApplicationRepo) SetReviewedTx(ctx context.Context, tx pgx.Tx, a *models.MitraApplication) error {
	_, err := tx.Exec(ctx, `
		UPDATE mitra_applications SET status = $2, account_id = $3, reviewed_by = $4, reviewed_at = $5 WHERE id = $1
	`, a.ID, a.Status, a.AccountID, a.ReviewedBy, a.ReviewedAt)
	return err
}

func (r *ApplicationRepo) ListPending(ctx context.Context) ([]*models.MitraApplication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+` FROM mitra_applications WHERE status = 'pending' ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.MitraApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
