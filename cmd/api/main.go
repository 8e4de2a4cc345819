package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/getlife/backend/internal/auth"
	"github.com/getlife/backend/internal/config"
	"github.com/getlife/backend/internal/repository"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	root := &cobra.Command{
		Use:           "getlife",
		Short:         "GetLife service marketplace API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.Init(v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./getlife.yaml)")
	root.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	_ = v.BindPFlag("database.url", root.PersistentFlags().Lookup("database-url"))

	root.AddCommand(newServeCmd(v), newMigrateCmd(v), newVersionCmd())
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background job workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("port", "", "HTTP port")
	_ = v.BindPFlag("http.port", cmd.Flags().Lookup("port"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrate(ctx, pool); err != nil {
		return err
	}

	app, err := build(pool, cfg, logger)
	if err != nil {
		return err
	}

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := app.river.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := app.river.Stop(shutdownCtx); err != nil {
		slog.Error("River stop failed", "error", err)
	}
	return nil
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	var adminEmail, adminPassword, adminName string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and River migrations, optionally seeding an admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			slog.SetDefault(cfg.Logger())

			ctx := cmd.Context()
			pool, err := connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := migrate(ctx, pool); err != nil {
				return err
			}
			if adminEmail == "" {
				return nil
			}
			svc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
			admin, err := svc.EnsureAdmin(ctx, adminEmail, adminPassword, adminName)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			slog.Info("Admin account ready", "account_id", admin.ID, "email", admin.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "create or reset this admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for --admin-email")
	cmd.Flags().StringVar(&adminName, "admin-name", "Admin GetLife", "display name for --admin-email")
	cmd.MarkFlagsRequiredTogether("admin-email", "admin-password")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot reach PostgreSQL, is it running? %w", err)
	}
	slog.Info("Connected to PostgreSQL database")
	return pool, nil
}

// migrate applies the application schema, then River's own tables.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := repository.ApplySchema(ctx, pool); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	slog.Info("Schema and River migrations applied")
	return nil
}
