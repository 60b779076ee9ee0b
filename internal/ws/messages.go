// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeBatchCreated MsgType = "batch_created"
	MsgTypeFulfillment  MsgType = "fulfillment_report"
	MsgTypeSlotSettled  MsgType = "slot_settled"
)

// ──────────────────────────────────────────────────────────────────────────────
// BatchCreatedMessage — sent when a player's batch of slots is allocated.
// ──────────────────────────────────────────────────────────────────────────────

// BatchCreatedMessage tells clients a new id range exists and fulfillment
// is about to start.
type BatchCreatedMessage struct {
	Type        MsgType   `json:"type"`
	Player      uuid.UUID `json:"player"`
	StartGameID int64     `json:"start_game_id"`
	EndGameID   int64     `json:"end_game_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// FulfillmentMessage — sent after a fulfillment pass over a batch completes.
// ──────────────────────────────────────────────────────────────────────────────

// FulfillmentMessage carries the per-slot outcome report so clients know
// which of their slots became playable.
type FulfillmentMessage struct {
	Type      MsgType                  `json:"type"`
	Report    domain.FulfillmentReport `json:"report"`
	Timestamp time.Time                `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// SlotSettledMessage — sent when a played slot's result is decided.
// ──────────────────────────────────────────────────────────────────────────────

// SlotSettledMessage reveals the actual price and the wager result.
type SlotSettledMessage struct {
	Type           MsgType           `json:"type"`
	GameID         int64             `json:"game_id"`
	Player         uuid.UUID         `json:"player"`
	Result         domain.SlotResult `json:"result"`
	DisplayedPrice decimal.Decimal   `json:"displayed_price"`
	ActualPrice    decimal.Decimal   `json:"actual_price"`
	Timestamp      time.Time         `json:"timestamp"`
}
