// Package gameerr defines the error taxonomy shared by the engine and its domain packages.
// This package is PURE and must NOT import any infrastructure packages.
//
// Rejections (funds, points, busy research, prerequisites, duplicate sources,
// unknown or already-owned ids) leave game state unchanged and are meant to be
// shown to the player. CorruptSaveError and InvariantViolationError are fatal
// for the operation that produced them.
package gameerr

import (
	"errors"
	"fmt"
	"strings"
)

// InsufficientFundsError is returned when a cookie debit exceeds the balance.
type InsufficientFundsError struct {
	Need float64
	Have float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %.2f, have %.2f", e.Need, e.Have)
}

// InsufficientPointsError is returned when research points do not cover a node's cost.
type InsufficientPointsError struct {
	Need float64
	Have float64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient research points: need %.2f, have %.2f", e.Need, e.Have)
}

// ResearchBusyError is returned when another node is already in progress.
type ResearchBusyError struct {
	Active string
}

func (e *ResearchBusyError) Error() string {
	return "research busy: " + e.Active + " is in progress"
}

// PrerequisitesNotMetError is returned when a research node or an upgrade
// requirement is not satisfied yet.
type PrerequisitesNotMetError struct {
	Node    string
	Missing []string
}

func (e *PrerequisitesNotMetError) Error() string {
	if len(e.Missing) == 0 {
		return "prerequisites not met for " + e.Node
	}
	return "prerequisites not met for " + e.Node + ": missing " + strings.Join(e.Missing, ", ")
}

// DuplicateSourceError guards the modifier stack against applying the same
// source twice to the same target.
type DuplicateSourceError struct {
	Target string
	Source string
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("modifier source %q already registered for target %q", e.Source, e.Target)
}

// UnknownIDError is returned when a command names something outside the catalog.
type UnknownIDError struct {
	Kind string
	ID   string
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.ID)
}

// AlreadyOwnedError is returned for one-shot purchases that were already made.
type AlreadyOwnedError struct {
	ID string
}

func (e *AlreadyOwnedError) Error() string {
	return "already owned: " + e.ID
}

// ClickingDisabledError is returned for clicks while an event suspends them.
type ClickingDisabledError struct {
	Effect string
}

func (e *ClickingDisabledError) Error() string {
	return "clicking disabled during " + e.Effect
}

// ContestRunningError is returned when a click contest starts while another
// one is still counting.
type ContestRunningError struct {
	Name string
}

func (e *ContestRunningError) Error() string {
	return "contest already running: " + e.Name
}

// CorruptSaveError reports persisted data that cannot be loaded.
type CorruptSaveError struct {
	Reason string
	Err    error
}

func (e *CorruptSaveError) Error() string {
	if e.Err != nil {
		return "corrupt save: " + e.Reason + ": " + e.Err.Error()
	}
	return "corrupt save: " + e.Reason
}

func (e *CorruptSaveError) Unwrap() error { return e.Err }

// InvariantViolationError signals a defect. Callers must not try to repair state.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Detail
}

// Corrupt builds a CorruptSaveError.
func Corrupt(reason string, err error) error {
	return &CorruptSaveError{Reason: reason, Err: err}
}

// Invariant builds an InvariantViolationError with a formatted detail.
func Invariant(format string, args ...interface{}) error {
	return &InvariantViolationError{Detail: fmt.Sprintf(format, args...)}
}

// IsRejected reports whether err is a user-actionable rejection that left
// state untouched.
func IsRejected(err error) bool {
	var (
		funds   *InsufficientFundsError
		points  *InsufficientPointsError
		busy    *ResearchBusyError
		prereq  *PrerequisitesNotMetError
		dup     *DuplicateSourceError
		unknown *UnknownIDError
		owned   *AlreadyOwnedError
		noClick *ClickingDisabledError
		contest *ContestRunningError
	)
	return errors.As(err, &funds) ||
		errors.As(err, &points) ||
		errors.As(err, &busy) ||
		errors.As(err, &prereq) ||
		errors.As(err, &dup) ||
		errors.As(err, &unknown) ||
		errors.As(err, &owned) ||
		errors.As(err, &noClick) ||
		errors.As(err, &contest)
}

// IsCorrupt reports whether err wraps a CorruptSaveError.
func IsCorrupt(err error) bool {
	var c *CorruptSaveError
	return errors.As(err, &c)
}

// IsInvariant reports whether err wraps an InvariantViolationError.
func IsInvariant(err error) bool {
	var v *InvariantViolationError
	return errors.As(err, &v)
}

// Code returns a stable machine-readable name for err, used on the wire.
func Code(err error) string {
	var (
		funds   *InsufficientFundsError
		points  *InsufficientPointsError
		busy    *ResearchBusyError
		prereq  *PrerequisitesNotMetError
		dup     *DuplicateSourceError
		unknown *UnknownIDError
		owned   *AlreadyOwnedError
		noClick *ClickingDisabledError
		contest *ContestRunningError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &funds):
		return "INSUFFICIENT_FUNDS"
	case errors.As(err, &points):
		return "INSUFFICIENT_POINTS"
	case errors.As(err, &busy):
		return "RESEARCH_BUSY"
	case errors.As(err, &prereq):
		return "PREREQUISITES_NOT_MET"
	case errors.As(err, &dup):
		return "DUPLICATE_SOURCE"
	case errors.As(err, &unknown):
		return "UNKNOWN_ID"
	case errors.As(err, &owned):
		return "ALREADY_OWNED"
	case errors.As(err, &noClick):
		return "CLICKING_DISABLED"
	case errors.As(err, &contest):
		return "CONTEST_RUNNING"
	case IsCorrupt(err):
		return "CORRUPT_SAVE"
	case IsInvariant(err):
		return "INVARIANT_VIOLATION"
	default:
		return "INTERNAL"
	}
}
