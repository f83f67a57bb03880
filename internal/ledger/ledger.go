// Package ledger owns the coin balance and the study-hours accumulator.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"studydex/internal/model"
)

var (
	ErrInvalidHours      = errors.New("study hours must be a positive finite number")
	ErrInsufficientFunds = errors.New("not enough study coins")
)

// FundsError reports a debit the balance cannot cover.
type FundsError struct {
	Cost    decimal.Decimal
	Balance decimal.Decimal
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("%s: need %s, have %s", ErrInsufficientFunds, e.Cost.String(), e.Balance.String())
}

func (e *FundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// LogStudy converts study time into coins at one coin per hour.
func LogStudy(l model.Ledger, hours float64) (model.Ledger, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return l, ErrInvalidHours
	}
	h := decimal.NewFromFloat(hours)
	return model.Ledger{
		Coins:           l.Coins.Add(h),
		TotalStudyHours: l.TotalStudyHours.Add(h),
	}, nil
}

func CanAfford(l model.Ledger, cost decimal.Decimal) bool {
	return l.Coins.GreaterThanOrEqual(cost)
}

// Debit removes cost from the balance, refusing to go below zero.
func Debit(l model.Ledger, cost decimal.Decimal) (model.Ledger, error) {
	if !CanAfford(l, cost) {
		return l, &FundsError{Cost: cost, Balance: l.Coins}
	}
	l.Coins = l.Coins.Sub(cost)
	return l, nil
}

func Credit(l model.Ledger, amount decimal.Decimal) model.Ledger {
	l.Coins = l.Coins.Add(amount)
	return l
}

// DailyProgress is the share of the daily target the balance covers, capped at 1.
func DailyProgress(l model.Ledger, target float64) float64 {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return 0
	}
	p := l.Coins.InexactFloat64() / target
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
