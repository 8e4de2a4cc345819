// Package onboarding handles mitra applications: anyone may apply, and an
// admin approval turns the application into a verified mitra account.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/getlife/backend/internal/auth"
	"github.com/getlife/backend/internal/billing"
	"github.com/getlife/backend/internal/models"
	"github.com/getlife/backend/internal/notify"
	"github.com/getlife/backend/internal/repository"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyReviewed     = errors.New("application already reviewed")
	ErrInvalidExpertise    = errors.New("unknown expertise")
	ErrDuplicateEmail      = auth.ErrDuplicateEmail
	ErrWeakPassword        = auth.ErrWeakPassword
)

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ApplicationStore interface {
	Create(ctx context.Context, a *models.MitraApplication) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.MitraApplication, error)
	SetReviewedTx(ctx context.Context, tx pgx.Tx, a *models.MitraApplication) error
	ListPending(ctx context.Context) ([]*models.MitraApplication, error)
}

type AccountCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, a *models.Account) error
}

type SubmitInput struct {
	FullName  string
	Phone     string
	Address   string
	Expertise string
	Reason    string
	KTPURL    string
}

// Credentials are chosen by the admin when approving and handed to the mitra.
type Credentials struct {
	Email    string
	Password string
	Name     string
}

type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*models.MitraApplication, error)
	ListPending(ctx context.Context) ([]*models.MitraApplication, error)
	Approve(ctx context.Context, adminID, appID uuid.UUID, cred Credentials) (*models.Account, error)
	Reject(ctx context.Context, adminID, appID uuid.UUID) (*models.MitraApplication, error)
}

type Deps struct {
	Pool         TxBeginner
	Applications ApplicationStore
	Accounts     AccountCreator
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

func (s *service) Submit(ctx context.Context, in SubmitInput) (*models.MitraApplication, error) {
	if !models.ServiceTypes[in.Expertise] {
		return nil, ErrInvalidExpertise
	}
	a := &models.MitraApplication{
		ID:        uuid.New(),
		FullName:  strings.TrimSpace(in.FullName),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		Expertise: in.Expertise,
		Reason:    in.Reason,
		KTPURL:    in.KTPURL,
		Status:    models.ApplicationPending,
	}
	if err := s.Applications.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	s.Logger.Info("mitra application submitted", "application_id", a.ID, "expertise", a.Expertise)
	return a, nil
}

func (s *service) ListPending(ctx context.Context) ([]*models.MitraApplication, error) {
	list, err := s.Applications.ListPending(ctx)
	if list == nil && err == nil {
		list = []*models.MitraApplication{}
	}
	return list, err
}

// Approve creates the mitra account with a zero balance and links it to the
// application in the same transaction.
func (s *service) Approve(ctx context.Context, adminID, appID uuid.UUID, cred Credentials) (*models.Account, error) {
	hash, err := auth.HashPassword(cred.Password)
	if err != nil {
		return nil, err
	}
	var acc *models.Account
	err = s.review(ctx, adminID, appID, models.ApplicationApproved, func(tx pgx.Tx, app *models.MitraApplication) error {
		name := strings.TrimSpace(cred.Name)
		if name == "" {
			name = app.FullName
		}
		acc = &models.Account{
			ID:           uuid.New(),
			Email:        strings.ToLower(strings.TrimSpace(cred.Email)),
			Name:         name,
			Phone:        app.Phone,
			Address:      app.Address,
			PasswordHash: hash,
			Role:         models.RoleMitra,
			Status:       models.AccountStatusVerified,
			Expertise:    app.Expertise,
		}
		if err := s.Accounts.CreateTx(ctx, tx, acc); err != nil {
			if repository.IsUniqueViolation(err, "") {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create mitra account: %w", err)
		}
		app.AccountID = &acc.ID
		return s.Notify(ctx, tx, notify.Args{
			AccountID: acc.ID,
			Event:     notify.KindApplicationDecided,
			Title:     "Selamat bergabung",
			Message:   fmt.Sprintf("Pendaftaran mitra %s disetujui. Isi saldo minimal sebelum menerima pesanan.", app.Expertise),
			Type:      models.NotificationSuccess,
		})
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Reject closes the application. The applicant has no account yet, so no
// notification is sent.
func (s *service) Reject(ctx context.Context, adminID, appID uuid.UUID) (*models.MitraApplication, error) {
	var out *models.MitraApplication
	err := s.review(ctx, adminID, appID, models.ApplicationRejected, func(_ pgx.Tx, app *models.MitraApplication) error {
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) review(ctx context.Context, adminID, appID uuid.UUID, status string, fn func(tx pgx.Tx, app *models.MitraApplication) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	app, err := s.Applications.GetByIDForUpdate(ctx, tx, appID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrApplicationNotFound
		}
		return err
	}
	if app.Status != models.ApplicationPending {
		return ErrAlreadyReviewed
	}
	if err := fn(tx, app); err != nil {
		return err
	}
	now := s.Clock.Now()
	app.Status, app.ReviewedBy, app.ReviewedAt = status, &adminID, &now
	if err := s.Applications.SetReviewedTx(ctx, tx, app); err != nil {
		return fmt.Errorf("record review: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.Logger.Info("mitra application reviewed", "application_id", app.ID, "status", status, "admin_id", adminID)
	return nil
}
