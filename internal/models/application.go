package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

type MitraApplication struct {
	ID         uuid.UUID  `json:"id"`
	FullName   string     `json:"full_name"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	Expertise  string     `json:"expertise"`
	Reason     string     `json:"reason"`
	KTPURL     string     `json:"ktp_url"`
	Status     string     `json:"status"`
	AccountID  *uuid.UUID `json:"account_id,omitempty"`
	ReviewedBy *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
