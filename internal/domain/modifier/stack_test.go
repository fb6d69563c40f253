package modifier

import (
	"errors"
	"testing"

	"github.com/MRamiBalles/cookie-engine/internal/domain/gameerr"
)

func TestResolveMultipliesRegisteredFactors(t *testing.T) {
	s := NewStack()
	if got := s.Resolve(TargetGlobalProduction); got != 1 {
		t.Fatalf("empty stack resolves to %v, want 1", got)
	}

	_ = s.Register(TargetGlobalProduction, 1.5, "research:betterDough")
	_ = s.Register(TargetGlobalProduction, 2, "upgrade:overdrive")
	_ = s.Register(TargetClickPower, 3, "upgrade:plasticMouse")

	if got := s.Resolve(TargetGlobalProduction); got != 3 {
		t.Errorf("global = %v, want 3", got)
	}
	if got := s.Resolve(TargetClickPower); got != 3 {
		t.Errorf("click = %v, want 3", got)
	}
	if got := s.Resolve(ProducerTarget("cursor")); got != 1 {
		t.Errorf("untouched producer target = %v, want 1", got)
	}
}

func TestRegisterDuplicateSourceRejected(t *testing.T) {
	s := NewStack()
	if err := s.Register(TargetClickPower, 2, "achievement:click_beginner"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := s.Register(TargetClickPower, 2, "achievement:click_beginner")
	var dup *gameerr.DuplicateSourceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSourceError, got %v", err)
	}
	if s.Len() != 1 || s.Resolve(TargetClickPower) != 2 {
		t.Errorf("duplicate register changed the stack: len=%d click=%v", s.Len(), s.Resolve(TargetClickPower))
	}

	// Same source on another target is a different contribution.
	if err := s.Register(TargetGlobalProduction, 2, "achievement:click_beginner"); err != nil {
		t.Errorf("same source on other target should be allowed: %v", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	s := NewStack()
	if err := s.Register("NOPE", 2, "upgrade:x"); !gameerr.IsInvariant(err) {
		t.Errorf("invalid target: got %v", err)
	}
	if err := s.Register(TargetClickPower, 0, "upgrade:x"); !gameerr.IsInvariant(err) {
		t.Errorf("zero factor: got %v", err)
	}
	if err := s.Register(TargetClickPower, 2, ""); !gameerr.IsInvariant(err) {
		t.Errorf("empty source: got %v", err)
	}
}

func TestTransientReverseIsIdempotent(t *testing.T) {
	s := NewStack()
	_ = s.Register(TargetGlobalProduction, 1.1, "upgrade:a")
	base := s.Resolve(TargetGlobalProduction)

	reverse, err := s.ApplyTransient(TargetGlobalProduction, 7)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := s.Resolve(TargetGlobalProduction); got != base*7 {
		t.Errorf("with transient = %v, want %v", got, base*7)
	}
	if !reverse() {
		t.Errorf("first reverse should remove the contribution")
	}
	if reverse() {
		t.Errorf("second reverse should be a no-op")
	}
	if got := s.Resolve(TargetGlobalProduction); got != base {
		t.Errorf("after reverse = %v, want exactly %v", got, base)
	}
}

func TestRetainKeepsPrestigeTier(t *testing.T) {
	s := NewStack()
	_ = s.Register(TargetGlobalProduction, 1.01, "achievement:cookie_rookie")
	_ = s.Register(TargetGlobalProduction, 2, "upgrade:overdrive")
	_ = s.Register(TargetClickPower, 1.05, "heavenly:angel_clicks")
	_ = s.Register(TargetGlobalProduction, 1.5, "research:betterDough")

	s.Retain(func(m Modifier) bool { return m.Tier() == TierPrestige })

	mods := s.Modifiers()
	if len(mods) != 2 {
		t.Fatalf("kept %d modifiers, want 2", len(mods))
	}
	if mods[0].Source != "achievement:cookie_rookie" || mods[1].Source != "heavenly:angel_clicks" {
		t.Errorf("order not preserved: %+v", mods)
	}
	if err := s.Register(TargetGlobalProduction, 2, "upgrade:overdrive"); err != nil {
		t.Errorf("cleared source should be registrable again: %v", err)
	}
}

func TestProducerTarget(t *testing.T) {
	id, ok := ProducerTarget("farm").ProducerID()
	if !ok || id != "farm" {
		t.Errorf("ProducerID = %q, %v", id, ok)
	}
	if _, ok := TargetClickPower.ProducerID(); ok {
		t.Errorf("click power is not a producer target")
	}
}
