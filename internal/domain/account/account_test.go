package account

import (
	"errors"
	"math"
	"testing"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
)

func TestCreditTracksLifetime(t *testing.T) {
	a := New()
	if err := a.Credit(10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := a.Debit(4); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if a.Balance() != 6 {
		t.Errorf("balance = %v, want 6", a.Balance())
	}
	if a.LifetimeProduced() != 10 {
		t.Errorf("lifetime = %v, want 10 (debits must not reduce it)", a.LifetimeProduced())
	}
}

func TestDebitRejectedLeavesBalance(t *testing.T) {
	a := New()
	_ = a.Credit(5)

	err := a.Debit(6)
	var funds *gameerr.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if funds.Need != 6 || funds.Have != 5 {
		t.Errorf("error carries need=%v have=%v", funds.Need, funds.Have)
	}
	if a.Balance() != 5 {
		t.Errorf("balance changed on rejected debit: %v", a.Balance())
	}
}

func TestNegativeCreditIsInvariantViolation(t *testing.T) {
	a := New()
	if err := a.Credit(-1); !gameerr.IsInvariant(err) {
		t.Errorf("expected invariant violation, got %v", err)
	}
	if a.Balance() != 0 {
		t.Errorf("balance = %v after rejected credit", a.Balance())
	}
}

func TestRestoreRejectsNegativeBalance(t *testing.T) {
	if _, err := Restore(-1, 0, 0, 0); !gameerr.IsCorrupt(err) {
		t.Errorf("expected corrupt save error, got %v", err)
	}
}

func TestPrestigeResetKeepsLifetime(t *testing.T) {
	a := New()
	_ = a.Credit(100)
	a.RecordClick()
	a.ResetBalance(0)
	if a.Balance() != 0 || a.LifetimeProduced() != 100 || a.TotalClicks() != 1 {
		t.Errorf("after reset: balance=%v lifetime=%v clicks=%d", a.Balance(), a.LifetimeProduced(), a.TotalClicks())
	}

	_ = a.Credit(50)
	a.ResetBalance(2.5)
	if a.Balance() != 2.5 || a.LifetimeProduced() != 150 {
		t.Errorf("carried reset: balance=%v lifetime=%v", a.Balance(), a.LifetimeProduced())
	}
	a.ResetBalance(math.NaN())
	if a.Balance() != 0 {
		t.Errorf("NaN carry should reset to zero, got %v", a.Balance())
	}
}
