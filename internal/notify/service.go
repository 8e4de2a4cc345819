package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/getlife/backend/internal/models"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, accountID, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type Service interface {
	List(ctx context.Context, accountID uuid.UUID) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, accountID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

// List returns the latest notifications and the unread count.
func (s *service) List(ctx context.Context, accountID uuid.UUID) ([]*models.Notification, int64, error) {
	list, err := s.repo.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, unread, nil
}

func (s *service) MarkRead(ctx context.Context, accountID, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, accountID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, accountID)
}
