package producer

import (
	"errors"
	"math"
	"testing"

	"github.com/MRamiBalles/cookie-engine/internal/domain/account"
	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
	"github.com/MRamiBalles/cookie-engine/internal/domain/rules"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger([]Def{
		{ID: "A", Name: "Cursor", BaseCost: 15, BaseOutput: 0.1},
		{ID: "B", Name: "Grandma", BaseCost: 100, BaseOutput: 1},
	}, DefaultParams())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func TestTenPurchasesCrossFirstMilestoneOnce(t *testing.T) {
	l := newTestLedger(t)
	acct := account.New()
	total := rules.CumulativeCost(15, 1.15, 0, 10)
	_ = acct.Credit(total + 1)

	spent := 0.0
	crossings := 0
	for i := 0; i < 10; i++ {
		p, err := l.Purchase("A", acct)
		if err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
		spent += p.Cost
		crossings += len(p.Milestones)
	}

	if math.Abs(spent-total) > 1e-9 {
		t.Errorf("spent %v, want %v", spent, total)
	}
	if math.Abs(acct.Balance()-1) > 1e-9 {
		t.Errorf("balance left = %v, want 1", acct.Balance())
	}
	a, _ := l.Get("A")
	if crossings != 1 {
		t.Errorf("milestone crossings = %d, want 1", crossings)
	}
	if math.Abs(a.Efficiency-1.1) > 1e-12 || a.Level != 2 {
		t.Errorf("efficiency=%v level=%d, want 1.1 and 2", a.Efficiency, a.Level)
	}
}

func TestCostFollowsCurve(t *testing.T) {
	l := newTestLedger(t)
	acct := account.New()
	_ = acct.Credit(1e9)
	for n := 0; n < 30; n++ {
		c, _ := l.Cost("B")
		want := 100 * math.Pow(1.15, float64(n))
		if math.Abs(c-want) > 1e-9*want {
			t.Fatalf("cost after %d = %v, want %v", n, c, want)
		}
		if _, err := l.Purchase("B", acct); err != nil {
			t.Fatalf("purchase: %v", err)
		}
	}
}

func TestPurchaseInsufficientFundsIsAtomic(t *testing.T) {
	l := newTestLedger(t)
	acct := account.New()
	_ = acct.Credit(14)

	_, err := l.Purchase("A", acct)
	var funds *gameerr.InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if l.Count("A") != 0 || acct.Balance() != 14 {
		t.Errorf("state changed: count=%d balance=%v", l.Count("A"), acct.Balance())
	}
}

func TestUnknownProducer(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Purchase("Z", account.New()); !gameerr.IsRejected(err) {
		t.Errorf("unknown producer should be a rejection, got %v", err)
	}
}

func TestRestoredMilestonesDoNotRetrigger(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Restore("A", 10, 1.1, 2, -1); err != nil {
		t.Fatalf("restore: %v", err)
	}
	acct := account.New()
	_ = acct.Credit(1e6)
	p, err := l.Purchase("A", acct)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(p.Milestones) != 0 {
		t.Errorf("restored producer re-crossed %v", p.Milestones)
	}
	a, _ := l.Get("A")
	if math.Abs(a.Efficiency-1.1) > 1e-12 {
		t.Errorf("efficiency = %v, want 1.1", a.Efficiency)
	}
}

func TestUpgradeDoublesEfficiency(t *testing.T) {
	l := newTestLedger(t)
	acct := account.New()
	_ = acct.Credit(150)

	cost, err := l.Upgrade("A", acct)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if cost != 150 {
		t.Errorf("upgrade cost = %v, want 15×10^1", cost)
	}
	a, _ := l.Get("A")
	if a.Efficiency != 2 || a.Level != 2 {
		t.Errorf("after upgrade efficiency=%v level=%d", a.Efficiency, a.Level)
	}
	if _, err := l.Upgrade("A", acct); !gameerr.IsRejected(err) {
		t.Errorf("second upgrade should be unaffordable, got %v", err)
	}
}

func TestRawOutput(t *testing.T) {
	l := newTestLedger(t)
	_ = l.Restore("A", 10, 1.1, 2, 1)
	_ = l.Restore("B", 2, 1, 1, 0)
	want := 10*0.1*1.1 + 2*1.0
	if got := l.RawOutput(); math.Abs(got-want) > 1e-12 {
		t.Errorf("raw output = %v, want %v", got, want)
	}
	scaled := l.ScaledOutput(func(id string) float64 {
		if id == "B" {
			return 2
		}
		return 1
	})
	if math.Abs(scaled-(10*0.1*1.1+4)) > 1e-12 {
		t.Errorf("scaled output = %v", scaled)
	}
}

func TestRestoreRejectsNegativeCount(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Restore("A", -3, 1, 1, 0); !gameerr.IsCorrupt(err) {
		t.Errorf("expected corrupt save, got %v", err)
	}
}

func TestPurchaseScaledChargesDiscountedPrice(t *testing.T) {
	l := newTestLedger(t)
	acct := account.New()
	_ = acct.Credit(7.5)

	half, _ := l.ScaledCost("A", 0.5)
	if half != 7.5 {
		t.Fatalf("scaled cost = %v, want 7.5", half)
	}
	p, err := l.PurchaseScaled("A", acct, 0.5)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p.Cost != 7.5 || acct.Balance() != 0 || p.Count != 1 {
		t.Errorf("purchase = %+v, balance %v", p, acct.Balance())
	}
	if _, err := l.PurchaseScaled("A", acct, 0.5); !gameerr.IsRejected(err) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
}
