package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/getlife/backend/internal/models"
)

// WorkingSessionIndex is the partial unique index guarding one running
// session per mitra.
const WorkingSessionIndex = "orders_one_working_per_mitra"

const orderColumns = `id, user_id, mitra_id, service_type, user_address, status, accepted_at, started_at, ended_at,
	elapsed_seconds, total_amount, admin_fee, mitra_earnings, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.MitraID, &o.ServiceType, &o.UserAddress, &o.Status, &o.AcceptedAt,
		&o.StartedAt, &o.EndedAt, &o.ElapsedSeconds, &o.TotalAmount, &o.AdminFee, &o.MitraEarnings,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a new order inside the given transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx pgx.Tx, o *models.Order) error {
	return tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, mitra_id, service_type, user_address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.MitraID, o.ServiceType, o.UserAddress, o.Status).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetByIDForUpdate locks the order row. Call within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Order, error) {
	return scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

// UpdateTx writes the lifecycle fields of o.
func (r *OrderRepo) UpdateTx(ctx context.Context, tx pgx.Tx, o *models.Order) error {
	return tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, accepted_at = $3, started_at = $4, ended_at = $5, elapsed_seconds = $6,
		    total_amount = $7, admin_fee = $8, mitra_earnings = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, o.ID, o.Status, o.AcceptedAt, o.StartedAt, o.EndedAt, o.ElapsedSeconds, o.TotalAmount, o.AdminFee,
		o.MitraEarnings).Scan(&o.UpdatedAt)
}

// HasWorkingSession reports whether the mitra has a started, unfinished order.
func (r *OrderRepo) HasWorkingSession(ctx context.Context, tx pgx.Tx, mitraID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders WHERE mitra_id = $1 AND status = 'in_progress' AND started_at IS NOT NULL
		)
	`, mitraID).Scan(&exists)
	return exists, err
}

func (r *OrderRepo) ListByMitra(ctx context.Context, mitraID uuid.UUID) ([]*models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE mitra_id = $1 ORDER BY created_at DESC`, mitraID)
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// MitraStats sums the settled orders of a mitra ended at or after since.
func (r *OrderRepo) MitraStats(ctx context.Context, mitraID uuid.UUID, since time.Time) (*models.MitraStats, error) {
	var s models.MitraStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'blocked'),
		       COALESCE(SUM(elapsed_seconds), 0),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(admin_fee), 0),
		       COALESCE(SUM(mitra_earnings), 0)
		FROM orders
		WHERE mitra_id = $1 AND status IN ('completed', 'blocked') AND ended_at >= $2
	`, mitraID, since).Scan(&s.CompletedOrders, &s.BlockedOrders, &s.WorkedSeconds, &s.TotalBilled,
		&s.TotalCommission, &s.TotalEarnings)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PlatformEarnings sums commission across all mitras since the given time.
func (r *OrderRepo) PlatformEarnings(ctx context.Context, since time.Time) (*models.PlatformEarnings, error) {
	var e models.PlatformEarnings
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(admin_fee), 0),
		       (SELECT COALESCE(SUM(outstanding_debt), 0) FROM accounts WHERE blocked)
		FROM orders
		WHERE status IN ('completed', 'blocked') AND ended_at >= $1
	`, since).Scan(&e.Sessions, &e.TotalBilled, &e.TotalCommission, &e.OutstandingDebt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
