package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry_type values. Amount is signed from the account's point of view.
const (
	LedgerEntryCommission    = "commission"
	LedgerEntryTopup         = "topup"
	LedgerEntryAdminTransfer = "admin_transfer"
)

type LedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	EntryType    string     `json:"entry_type"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
