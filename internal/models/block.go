package models

import (
	"time"

	"github.com/google/uuid"
)

// BlockedAccount records one period during which a mitra could not take work.
type BlockedAccount struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Reason      string     `json:"reason"`
	DebtAmount  int64      `json:"debt_amount"`
	BlockedAt   time.Time  `json:"blocked_at"`
	UnblockedAt *time.Time `json:"unblocked_at,omitempty"`
}
