package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"

	"github.com/getlife/backend/internal/auth"
	"github.com/getlife/backend/internal/config"
	"github.com/getlife/backend/internal/dashboard"
	"github.com/getlife/backend/internal/middleware"
	"github.com/getlife/backend/internal/notify"
	"github.com/getlife/backend/internal/onboarding"
	"github.com/getlife/backend/internal/repository"
	"github.com/getlife/backend/internal/router"
	"github.com/getlife/backend/internal/validation"
	"github.com/getlife/backend/internal/wallet"
	"github.com/getlife/backend/internal/worksession"
)

type app struct {
	handler http.Handler
	river   *river.Client[pgx.Tx]
}

// build wires repositories, services and handlers over one pool.
func build(pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) (*app, error) {
	calc, err := cfg.Calculator()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("compile request schemas: %w", err)
	}

	accountRepo := repository.NewAccountRepo(pool)
	orderRepo := repository.NewOrderRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	appRepo := repository.NewApplicationRepo(pool)
	blockRepo := repository.NewBlockRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)

	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewWorker(notificationRepo))
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}
	enqueue := func(ctx context.Context, tx pgx.Tx, args notify.Args) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	orderSvc := worksession.NewService(worksession.Deps{
		Pool:             pool,
		Orders:           orderRepo,
		Accounts:         accountRepo,
		Ledger:           ledgerRepo,
		Blocks:           blockRepo,
		Calculator:       calc,
		MinAcceptBalance: cfg.Billing.MinAcceptBalance,
		Notify:           enqueue,
		Logger:           logger,
	})
	walletSvc := wallet.NewService(wallet.Deps{
		Pool:         pool,
		Transactions: txRepo,
		Accounts:     accountRepo,
		Ledger:       ledgerRepo,
		Blocks:       blockRepo,
		Notify:       enqueue,
		Logger:       logger,
	})
	onboardingSvc := onboarding.NewService(onboarding.Deps{
		Pool:         pool,
		Applications: appRepo,
		Accounts:     accountRepo,
		Notify:       enqueue,
		Logger:       logger,
	})

	mux := router.New(router.Handlers{
		Auth:       auth.NewHandler(authSvc, logger),
		Orders:     worksession.NewHandler(orderSvc, accountRepo, validator, cfg.Billing.MinAcceptBalance, logger),
		Wallet:     wallet.NewHandler(walletSvc, validator, logger),
		Onboarding: onboarding.NewHandler(onboardingSvc, validator, logger),
		Dashboard: dashboard.NewHandler(dashboard.Deps{
			Accounts:  accountRepo,
			Entries:   ledgerRepo,
			Blocks:    blockRepo,
			Stats:     orderRepo,
			Validator: validator,
			Location:  loc,
			Logger:    logger,
		}),
		Notifications: notify.NewHandler(notify.NewService(notificationRepo), logger),
	}, middleware.Authenticate(authSvc, accountRepo))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: true,
	})
	return &app{handler: c.Handler(mux), river: riverClient}, nil
}
