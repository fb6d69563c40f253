// Package account holds the cookie balance and lifetime totals.
// It is the only place allowed to mutate the balance.
package account

import (
	"math"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
)

// Account is the ResourceAccount: balance, lifetime production and click totals.
type Account struct {
	balance          float64
	lifetimeProduced float64
	totalClicks      int64
	goldenClicks     int64
}

// New returns an empty account.
func New() *Account {
	return &Account{}
}

// Restore rebuilds an account from persisted totals.
func Restore(balance, lifetime float64, clicks, golden int64) (*Account, error) {
	if !finite(balance) || balance < 0 {
		return nil, gameerr.Corrupt("balance must be a finite value >= 0", nil)
	}
	if !finite(lifetime) || lifetime < 0 {
		return nil, gameerr.Corrupt("lifetimeProduced must be a finite value >= 0", nil)
	}
	if clicks < 0 || golden < 0 {
		return nil, gameerr.Corrupt("click counters must be >= 0", nil)
	}
	return &Account{balance: balance, lifetimeProduced: lifetime, totalClicks: clicks, goldenClicks: golden}, nil
}

func (a *Account) Balance() float64          { return a.balance }
func (a *Account) LifetimeProduced() float64 { return a.lifetimeProduced }
func (a *Account) TotalClicks() int64        { return a.totalClicks }
func (a *Account) GoldenClicks() int64       { return a.goldenClicks }

// Credit adds produced cookies to the balance and the lifetime total.
func (a *Account) Credit(amount float64) error {
	if !finite(amount) || amount < 0 {
		return gameerr.Invariant("credit of %v is not a finite non-negative amount", amount)
	}
	a.balance += amount
	a.lifetimeProduced += amount
	return nil
}

// Debit removes amount from the balance, failing without side effects when
// the balance does not cover it.
func (a *Account) Debit(amount float64) error {
	if !finite(amount) || amount < 0 {
		return gameerr.Invariant("debit of %v is not a finite non-negative amount", amount)
	}
	if amount > a.balance {
		return &gameerr.InsufficientFundsError{Need: amount, Have: a.balance}
	}
	a.balance -= amount
	return nil
}

// RecordClick counts a manual click.
func (a *Account) RecordClick() { a.totalClicks++ }

// RecordGoldenClick counts a clicked golden cookie.
func (a *Account) RecordGoldenClick() { a.goldenClicks++ }

// ResetBalance replaces the balance with the amount a prestige reset carries
// over, usually zero. Lifetime totals survive.
func (a *Account) ResetBalance(start float64) {
	if start < 0 || !finite(start) {
		start = 0
	}
	a.balance = start
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
