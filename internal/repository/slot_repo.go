// Package repository contains the sqlx data-access layer. All slot status
// mutations go through conditional UPDATEs so the check-and-set is atomic at
// the database, never in application code.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SlotRepository handles all database operations for game slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new SlotRepository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// InsertBatch inserts the given slots inside an existing transaction.
// Used by LedgerService.RequestBatch together with the id-range allocation so
// the batch either fully exists or not at all.
func (r *SlotRepository) InsertBatch(ctx context.Context, tx *sqlx.Tx, slots []*domain.GameSlot) error {
	query := `
		INSERT INTO game_slots
			(game_id, player, status, created_at, updated_at)
		VALUES
			(:game_id, :player, :status, :created_at, :updated_at)`
	for _, s := range slots {
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("slot_repo.InsertBatch game %d: %w", s.GameID, err)
		}
	}
	return nil
}

// GetByID fetches a slot by its game id.
func (r *SlotRepository) GetByID(ctx context.Context, gameID int64) (*domain.GameSlot, error) {
	var s domain.GameSlot
	err := r.db.GetContext(ctx, &s, `SELECT * FROM game_slots WHERE game_id = $1`, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSlotNotFound
		}
		return nil, fmt.Errorf("slot_repo.GetByID: %w", err)
	}
	return &s, nil
}

// MarkInitialized flips a slot from pending to initialized, writing the
// listing id and displayed price in the same statement. The WHERE clause is
// the idempotency contract: if the slot has already advanced, zero rows match
// and nothing is mutated — callers get ErrInvalidState and may safely retry
// or skip. ErrSlotNotFound is returned when the id was never allocated.
func (r *SlotRepository) MarkInitialized(ctx context.Context, gameID int64, listingID string, displayedPrice decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE game_slots
		SET status          = 'initialized',
		    listing_id      = $1,
		    displayed_price = $2,
		    initialized_at  = now(),
		    updated_at      = now()
		WHERE game_id = $3 AND status = 'pending'`,
		listingID, displayedPrice, gameID)
	if err != nil {
		return fmt.Errorf("slot_repo.MarkInitialized: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMiss(ctx, gameID)
	}
	return nil
}

// MarkPlayed records the player's guess on an initialized slot they own.
func (r *SlotRepository) MarkPlayed(ctx context.Context, gameID int64, player uuid.UUID, guess domain.Guess) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE game_slots
		SET status     = 'played',
		    guess      = $1,
		    played_at  = now(),
		    updated_at = now()
		WHERE game_id = $2 AND player = $3 AND status = 'initialized'`,
		string(guess), gameID, player)
	if err != nil {
		return fmt.Errorf("slot_repo.MarkPlayed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish wrong owner from wrong state for a precise error.
		slot, gerr := r.GetByID(ctx, gameID)
		if gerr != nil {
			return gerr
		}
		if slot.Player != player {
			return domain.ErrNotSlotOwner
		}
		return domain.ErrInvalidState
	}
	return nil
}

// MarkSettled reveals the actual price and records the result on a played slot.
func (r *SlotRepository) MarkSettled(ctx context.Context, gameID int64, actualPrice decimal.Decimal, result domain.SlotResult) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE game_slots
		SET status       = 'settled',
		    actual_price = $1,
		    result       = $2,
		    settled_at   = now(),
		    updated_at   = now()
		WHERE game_id = $3 AND status = 'played'`,
		actualPrice, string(result), gameID)
	if err != nil {
		return fmt.Errorf("slot_repo.MarkSettled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifyMiss(ctx, gameID)
	}
	return nil
}

// classifyMiss resolves a zero-rows conditional UPDATE into ErrSlotNotFound
// or ErrInvalidState.
func (r *SlotRepository) classifyMiss(ctx context.Context, gameID int64) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM game_slots WHERE game_id = $1)`, gameID)
	if err != nil {
		return fmt.Errorf("slot_repo.classifyMiss: %w", err)
	}
	if !exists {
		return domain.ErrSlotNotFound
	}
	return domain.ErrInvalidState
}

// ListByPlayer returns a player's slots, newest first, actual price included.
// Callers are responsible for redacting unsettled actual prices.
func (r *SlotRepository) ListByPlayer(ctx context.Context, player uuid.UUID, limit, offset int) ([]*domain.GameSlot, error) {
	var slots []*domain.GameSlot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT * FROM game_slots
		WHERE player = $1
		ORDER BY game_id DESC
		LIMIT $2 OFFSET $3`,
		player, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("slot_repo.ListByPlayer: %w", err)
	}
	return slots, nil
}

// ListPendingInRange returns the ids of slots still pending inside
// [startGameID, endGameID], in ascending order.
func (r *SlotRepository) ListPendingInRange(ctx context.Context, startGameID, endGameID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		SELECT game_id FROM game_slots
		WHERE game_id BETWEEN $1 AND $2 AND status = 'pending'
		ORDER BY game_id ASC`,
		startGameID, endGameID)
	if err != nil {
		return nil, fmt.Errorf("slot_repo.ListPendingInRange: %w", err)
	}
	return ids, nil
}

// ListPlayed returns up to limit played slots awaiting settlement, oldest first.
func (r *SlotRepository) ListPlayed(ctx context.Context, limit int) ([]*domain.GameSlot, error) {
	var slots []*domain.GameSlot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT * FROM game_slots
		WHERE status = 'played'
		ORDER BY played_at ASC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("slot_repo.ListPlayed: %w", err)
	}
	return slots, nil
}
