// Package domain defines the core business entities and types for the
// emlakbet house-price wagering game.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// SlotStatus represents the lifecycle state of a game slot.
type SlotStatus string

const (
	SlotPending     SlotStatus = "pending"     // created by a batch request, awaiting oracle fulfillment
	SlotInitialized SlotStatus = "initialized" // listing + displayed price written by the oracle
	SlotPlayed      SlotStatus = "played"      // player locked in a guess
	SlotSettled     SlotStatus = "settled"     // actual price revealed, result decided
)

// IsValid returns true if the status is one of the four lifecycle states.
func (s SlotStatus) IsValid() bool {
	switch s {
	case SlotPending, SlotInitialized, SlotPlayed, SlotSettled:
		return true
	}
	return false
}

// Next returns the only status reachable from s, or "" for SlotSettled.
// Transitions are strictly monotonic; no state is ever skipped or revisited.
func (s SlotStatus) Next() SlotStatus {
	switch s {
	case SlotPending:
		return SlotInitialized
	case SlotInitialized:
		return SlotPlayed
	case SlotPlayed:
		return SlotSettled
	}
	return ""
}

// CanTransitionTo reports whether moving from s to target is a legal step.
func (s SlotStatus) CanTransitionTo(target SlotStatus) bool {
	return s.Next() == target && target != ""
}

// Guess represents the direction a player wagers relative to the displayed price.
type Guess string

const (
	GuessOver  Guess = "OVER"  // true price is above the displayed price
	GuessUnder Guess = "UNDER" // true price is below the displayed price
)

// IsValid returns true if the guess is a recognised direction.
func (g Guess) IsValid() bool {
	return g == GuessOver || g == GuessUnder
}

// SlotResult is the settled outcome of a played slot.
type SlotResult string

const (
	ResultWon  SlotResult = "won"
	ResultLost SlotResult = "lost"
)

// Multiplier bounds for the displayed-price skew. A committed multiplier is
// always inside [MultiplierMin, MultiplierMax] and never MultiplierIdentity,
// which guarantees displayedPrice != actualPrice.
const (
	MultiplierMin      = 85
	MultiplierMax      = 115
	MultiplierIdentity = 100
)

// ──────────────────────────────────────────────────────────────────────────────
// GameSlot
// ──────────────────────────────────────────────────────────────────────────────

// GameSlot is one game instance's externally-priced state. Slots are created
// only by the ledger in response to a batch request and mutated only through
// the ledger's status transitions; they are never deleted.
type GameSlot struct {
	GameID         int64            `json:"game_id"         db:"game_id"`
	Player         uuid.UUID        `json:"player"          db:"player"`
	Status         SlotStatus       `json:"status"          db:"status"`
	ListingID      *string          `json:"listing_id"      db:"listing_id"`
	DisplayedPrice *decimal.Decimal `json:"displayed_price" db:"displayed_price"`
	ActualPrice    *decimal.Decimal `json:"actual_price"    db:"actual_price"`
	Guess          *Guess           `json:"guess"           db:"guess"`
	Result         *SlotResult      `json:"result"          db:"result"`
	CreatedAt      time.Time        `json:"created_at"      db:"created_at"`
	InitializedAt  *time.Time       `json:"initialized_at"  db:"initialized_at"`
	PlayedAt       *time.Time       `json:"played_at"       db:"played_at"`
	SettledAt      *time.Time       `json:"settled_at"      db:"settled_at"`
	UpdatedAt      time.Time        `json:"updated_at"      db:"updated_at"`
}

// IsPending returns true while the slot awaits oracle fulfillment.
func (s *GameSlot) IsPending() bool { return s.Status == SlotPending }

// IsSettled returns true after the slot's result has been decided.
func (s *GameSlot) IsSettled() bool { return s.Status == SlotSettled }

// Playable returns true when the given player may lock in a guess.
func (s *GameSlot) Playable(player uuid.UUID) bool {
	return s.Status == SlotInitialized && s.Player == player
}

// PublicView returns a copy with the actual price and result redacted until
// settlement. The true price must stay invisible to the player while the
// wager is open.
func (s *GameSlot) PublicView() GameSlot {
	v := *s
	if v.Status != SlotSettled {
		v.ActualPrice = nil
		v.Result = nil
	}
	return v
}

// DecideResult computes the outcome of a settled guess. The multiplier!=100
// invariant makes actual == displayed impossible, so there is no tie case.
func DecideResult(guess Guess, displayed, actual decimal.Decimal) SlotResult {
	over := actual.GreaterThan(displayed)
	if (over && guess == GuessOver) || (!over && guess == GuessUnder) {
		return ResultWon
	}
	return ResultLost
}

// ──────────────────────────────────────────────────────────────────────────────
// BatchRequest & notification
// ──────────────────────────────────────────────────────────────────────────────

// BatchRequest records one player request for a contiguous range of slots.
// Rows are append-only and owned by the ledger.
type BatchRequest struct {
	ID          uuid.UUID `json:"id"            db:"id"`
	Player      uuid.UUID `json:"player"        db:"player"`
	StartGameID int64     `json:"start_game_id" db:"start_game_id"`
	EndGameID   int64     `json:"end_game_id"   db:"end_game_id"`
	CreatedAt   time.Time `json:"created_at"    db:"created_at"`
}

// Size returns the number of slots in the batch range.
func (b *BatchRequest) Size() int64 {
	return b.EndGameID - b.StartGameID + 1
}

// BatchGamesCreated is the notification emitted by the ledger after a batch
// request commits. Delivery is at-least-once; consumers must be replay-safe.
type BatchGamesCreated struct {
	Player      uuid.UUID `json:"player"`
	StartGameID int64     `json:"start_game_id"`
	EndGameID   int64     `json:"end_game_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// FulfillmentReport
// ──────────────────────────────────────────────────────────────────────────────

// OutcomeStatus classifies one slot's fulfillment attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Per-item failure/skip reasons recorded in fulfillment reports.
const (
	ReasonEnrichment         = "EnrichmentError"
	ReasonTransaction        = "TransactionError"
	ReasonAlreadyInitialized = "already-initialized"
)

// SlotOutcome is one entry of a fulfillment report.
type SlotOutcome struct {
	GameID int64         `json:"game_id"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// FulfillmentReport is the ordered, per-invocation summary of a batch pass.
// It is not persisted: the ledger's slot status is the durable source of truth.
type FulfillmentReport struct {
	Player      uuid.UUID     `json:"player"`
	StartGameID int64         `json:"start_game_id"`
	EndGameID   int64         `json:"end_game_id"`
	Items       []SlotOutcome `json:"items"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Append adds one outcome entry, preserving visit order.
func (r *FulfillmentReport) Append(gameID int64, status OutcomeStatus, reason string) {
	r.Items = append(r.Items, SlotOutcome{GameID: gameID, Status: status, Reason: reason})
}

// Succeeded returns the number of success entries (including already-initialized).
func (r *FulfillmentReport) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Status == OutcomeSuccess {
			n++
		}
	}
	return n
}

// Failed returns the number of failed entries.
func (r *FulfillmentReport) Failed() int {
	return len(r.Items) - r.Succeeded()
}
