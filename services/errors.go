package services

import (
	"errors"
	"fmt"
)

// Not-found errors: the caller asked about something that does not exist.
var (
	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrPokeNotFound        = errors.New("poke not found")
	ErrRosterEntryNotFound = errors.New("roster entry not found")
)

// Validation errors: the caller sent something correctable.
var (
	ErrRosterEntryWrongWorkspace = errors.New("roster entry belongs to another workspace")
	ErrSessionNotPending         = errors.New("session is not pending arbitration")
	ErrInvalidReaction           = errors.New("reaction is not in the allowed set")
	ErrNotPokeTarget             = errors.New("only the poke target may do this")
	ErrMessageChoice             = errors.New("either a preset message or free text is required, not both")
	ErrRestoreTokenInvalid       = errors.New("restore token invalid or expired")
	ErrPresetNotFound            = errors.New("preset message not found")
)

// ErrDoubleClaim signals two verified sessions bound to one roster entry.
// This cannot happen under correct locking; it is surfaced loudly instead
// of being auto-corrected.
var ErrDoubleClaim = errors.New("roster entry claimed by more than one verified session")

// PokeDeniedError carries the eligibility reason a re-validated send failed
// with. It is a validation error, not a system error.
type PokeDeniedError struct {
	Reason string
}

func (e *PokeDeniedError) Error() string {
	return fmt.Sprintf("poke not allowed: %s", e.Reason)
}

// DeniedReason returns the reason code if err is a PokeDeniedError.
func DeniedReason(err error) (string, bool) {
	var pd *PokeDeniedError
	if errors.As(err, &pd) {
		return pd.Reason, true
	}
	return "", false
}
