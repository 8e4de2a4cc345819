package models

import (
	"time"

	"github.com/google/uuid"
)

// Persisted order status values.
const (
	OrderStatusAwaiting   = "awaiting"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusBlocked    = "blocked"
	OrderStatusCancelled  = "cancelled"
)

// Work-session states derived from an order.
const (
	SessionPending   = "pending"
	SessionAccepted  = "accepted"
	SessionWorking   = "working"
	SessionSettled   = "settled"
	SessionBlocked   = "blocked"
	SessionCancelled = "cancelled"
)

type Order struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	MitraID        uuid.UUID  `json:"mitra_id"`
	ServiceType    string     `json:"service_type"`
	UserAddress    string     `json:"user_address"`
	Status         string     `json:"status"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	TotalAmount    int64      `json:"total_amount"`
	AdminFee       int64      `json:"admin_fee"`
	MitraEarnings  int64      `json:"mitra_earnings"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SessionState maps the stored status onto the work-session lifecycle.
func (o *Order) SessionState() string {
	switch o.Status {
	case OrderStatusAwaiting:
		return SessionPending
	case OrderStatusInProgress:
		if o.StartedAt == nil {
			return SessionAccepted
		}
		return SessionWorking
	case OrderStatusCompleted:
		return SessionSettled
	case OrderStatusBlocked:
		return SessionBlocked
	default:
		return SessionCancelled
	}
}
