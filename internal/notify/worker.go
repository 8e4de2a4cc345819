package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/getlife/backend/internal/models"
)

// Notification kinds.
const (
	KindOrderCreated       = "order_created"
	KindOrderAccepted      = "order_accepted"
	KindOrderCompleted     = "order_completed"
	KindOrderCancelled     = "order_cancelled"
	KindAccountBlocked     = "account_blocked"
	KindAccountUnblocked   = "account_unblocked"
	KindTopupApproved      = "topup_approved"
	KindTopupRejected      = "topup_rejected"
	KindBalanceTransferred = "balance_transferred"
	KindApplicationDecided = "application_decided"
)

type Args struct {
	AccountID uuid.UUID `json:"account_id"`
	Event     string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
}

func (Args) Kind() string { return "notify" }

func (Args) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 5}
}

// InsertTxFunc enqueues a notification within the caller's transaction so it
// only exists if the state change it describes commits. Provided by main
// using river.Client.InsertTx.
type InsertTxFunc func(ctx context.Context, tx pgx.Tx, args Args) error

// Store is the write side the worker needs.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Worker struct {
	river.WorkerDefaults[Args]
	store Store
}

func NewWorker(store Store) *Worker {
	return &Worker{store: store}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[Args]) error {
	args := job.Args
	if args.AccountID == uuid.Nil {
		return river.JobCancel(fmt.Errorf("notification without account"))
	}
	typ := args.Type
	if typ == "" {
		typ = models.NotificationInfo
	}
	n := &models.Notification{
		AccountID: args.AccountID,
		Kind:      args.Event,
		Title:     args.Title,
		Message:   args.Message,
		Type:      typ,
	}
	if err := w.store.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}
