package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleMitra = "mitra"
)

// Account status. Mitras start verified once their application is approved;
// customers and admins are active from registration.
const (
	AccountStatusActive   = "active"
	AccountStatusVerified = "verified"
)

// Service categories a mitra can be verified for.
const (
	ServiceGetClean   = "GetClean"
	ServiceGetMassage = "GetMassage"
	ServiceGetBarber  = "GetBarber"
)

var ServiceTypes = map[string]bool{
	ServiceGetClean:   true,
	ServiceGetMassage: true,
	ServiceGetBarber:  true,
}

type Account struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	Expertise       string    `json:"expertise,omitempty"`
	Balance         int64     `json:"balance"`
	Blocked         bool      `json:"blocked"`
	OutstandingDebt int64     `json:"outstanding_debt"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DebtFor returns max(0, -balance).
func DebtFor(balance int64) int64 {
	if balance < 0 {
		return -balance
	}
	return 0
}
