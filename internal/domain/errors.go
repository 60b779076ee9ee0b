package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Ledger errors
var (
	// ErrInvalidSize is returned when a batch request asks for zero slots.
	ErrInvalidSize = errors.New("batch size must be at least 1")

	// ErrSlotNotFound is returned when no game slot matches the given id.
	ErrSlotNotFound = errors.New("game slot not found")

	// ErrBatchNotFound is returned when no batch request matches the given id.
	ErrBatchNotFound = errors.New("batch request not found")

	// ErrInvalidState is returned when a status transition is attempted on a
	// slot that is not in the required state. Fulfillment treats this as the
	// benign "already handled" signal that makes replays safe: the failed
	// call has no side effects.
	ErrInvalidState = errors.New("game slot is not in the required state")

	// ErrUnauthorized is returned when a restricted ledger operation is
	// invoked by anything other than the configured oracle identity.
	ErrUnauthorized = errors.New("caller is not the oracle")
)

// Play errors
var (
	// ErrNotSlotOwner is returned when a player tries to play a slot that
	// belongs to someone else.
	ErrNotSlotOwner = errors.New("slot belongs to another player")

	// ErrInvalidGuess is returned when the wager direction is not OVER or UNDER.
	ErrInvalidGuess = errors.New("invalid guess: must be OVER or UNDER")
)

// Oracle pipeline errors
var (
	// ErrEnrichmentFailed is returned when the external listings source is
	// unreachable, answers with a non-success status, or yields no listings.
	ErrEnrichmentFailed = errors.New("listing enrichment failed")

	// ErrInvalidListingID is returned when an encoded listing id does not
	// round-trip through the fixed-width codec.
	ErrInvalidListingID = errors.New("invalid listing id encoding")

	// ErrTokenInvalid is returned when an oracle token cannot be parsed or
	// its signature does not match.
	ErrTokenInvalid = errors.New("oracle token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range []error{ErrSlotNotFound, ErrBatchNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict and map
// to HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
