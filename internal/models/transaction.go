package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionTopup   = "topup"
	TransactionPayment = "payment"
)

const (
	TransactionPending  = "pending"
	TransactionApproved = "approved"
	TransactionRejected = "rejected"
)

// Transaction is a balance request reviewed by an admin.
type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	AccountID     uuid.UUID  `json:"account_id"`
	Kind          string     `json:"kind"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	TransferProof string     `json:"transfer_proof,omitempty"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	ReviewedBy    *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
