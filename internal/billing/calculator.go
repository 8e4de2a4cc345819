// Package billing turns the length of a finished work session into the
// amount billed, the platform commission and the mitra's next balance.
package billing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Reference tariff.
const (
	DefaultHourlyRate         int64   = 125000
	DefaultCommissionFraction float64 = 0.25
	DefaultMinAcceptBalance   int64   = 10000
)

var (
	ErrInvalidConfig    = errors.New("invalid billing configuration")
	ErrNegativeElapsed  = errors.New("elapsed seconds must not be negative")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

var (
	secondsPerHour = decimal.NewFromInt(3600)
	maxAmount      = decimal.NewFromInt(math.MaxInt64)
	minAmount      = decimal.NewFromInt(math.MinInt64)
)

// SettlementResult is the outcome of one settle call. It is not stored on
// its own; callers copy its figures onto the order and the account.
type SettlementResult struct {
	BillableAmount   int64 `json:"billable_amount"`
	CommissionAmount int64 `json:"commission_amount"`
	NewBalance       int64 `json:"new_balance"`
	ShouldBlock      bool  `json:"should_block"`
}

// OutstandingDebt is what the mitra owes once the result is applied.
func (r SettlementResult) OutstandingDebt() int64 {
	if r.NewBalance < 0 {
		return -r.NewBalance
	}
	return 0
}

// ProviderEarnings is the part of the bill the mitra keeps.
func (r SettlementResult) ProviderEarnings() int64 {
	return r.BillableAmount - r.CommissionAmount
}

// Calculator holds the tariff. Both fields are read and checked on every call.
type Calculator struct {
	HourlyRate         int64
	CommissionFraction float64
}

func NewCalculator(hourlyRate int64, commissionFraction float64) (*Calculator, error) {
	c := &Calculator{HourlyRate: hourlyRate, CommissionFraction: commissionFraction}
	if err := c.validateRate(); err != nil {
		return nil, err
	}
	if err := c.validateCommission(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Calculator) validateRate() error {
	if c.HourlyRate < 0 {
		return fmt.Errorf("%w: hourly rate %d is negative", ErrInvalidConfig, c.HourlyRate)
	}
	return nil
}

func (c *Calculator) validateCommission() error {
	f := c.CommissionFraction
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: commission fraction is not finite", ErrInvalidConfig)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("%w: commission fraction %v outside [0, 1]", ErrInvalidConfig, f)
	}
	return nil
}

// RatePerSecond is derived from HourlyRate on every call.
func (c *Calculator) RatePerSecond() decimal.Decimal {
	return decimal.NewFromInt(c.HourlyRate).Div(secondsPerHour)
}

// Billable returns round(elapsedSeconds * hourlyRate / 3600). The product is
// taken before the division so the result is exact; ties round away from zero.
func (c *Calculator) Billable(elapsedSeconds int64) (int64, error) {
	if err := c.validateRate(); err != nil {
		return 0, err
	}
	if elapsedSeconds < 0 {
		return 0, ErrNegativeElapsed
	}
	amount := decimal.NewFromInt(elapsedSeconds).
		Mul(decimal.NewFromInt(c.HourlyRate)).
		DivRound(secondsPerHour, 0)
	return toAmount(amount)
}

// Commission returns round(billable * commissionFraction), ties away from zero.
func (c *Calculator) Commission(billable int64) (int64, error) {
	if err := c.validateCommission(); err != nil {
		return 0, err
	}
	fraction := decimal.NewFromFloat(c.CommissionFraction)
	return toAmount(decimal.NewFromInt(billable).Mul(fraction).Round(0))
}

// Settle is pure: it reads nothing and writes nothing.
func (c *Calculator) Settle(elapsedSeconds, priorBalance int64) (SettlementResult, error) {
	billable, err := c.Billable(elapsedSeconds)
	if err != nil {
		return SettlementResult{}, err
	}
	commission, err := c.Commission(billable)
	if err != nil {
		return SettlementResult{}, err
	}
	newBalance, err := toAmount(decimal.NewFromInt(priorBalance).Sub(decimal.NewFromInt(commission)))
	if err != nil {
		return SettlementResult{}, err
	}
	return SettlementResult{
		BillableAmount:   billable,
		CommissionAmount: commission,
		NewBalance:       newBalance,
		ShouldBlock:      newBalance < 0,
	}, nil
}

func toAmount(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d.String())
	}
	return d.IntPart(), nil
}
