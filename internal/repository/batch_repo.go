package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BatchRepository handles batch-request rows and game-id range allocation.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// AllocateRange reserves n fresh contiguous game ids inside an existing
// transaction and returns the first id of the range. The single-row counter
// UPDATE serialises concurrent batch requests, so ranges are always disjoint
// and ids are never reused.
func (r *BatchRepository) AllocateRange(ctx context.Context, tx *sqlx.Tx, n int64) (int64, error) {
	var next int64
	err := tx.GetContext(ctx, &next, `
		UPDATE game_counter
		SET next_game_id = next_game_id + $1
		WHERE id = 1
		RETURNING next_game_id`,
		n)
	if err != nil {
		return 0, fmt.Errorf("batch_repo.AllocateRange: %w", err)
	}
	return next - n, nil
}

// Insert appends a batch-request row inside an existing transaction.
func (r *BatchRepository) Insert(ctx context.Context, tx *sqlx.Tx, b *domain.BatchRequest) error {
	query := `
		INSERT INTO batch_requests
			(id, player, start_game_id, end_game_id, created_at)
		VALUES
			(:id, :player, :start_game_id, :end_game_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("batch_repo.Insert: %w", err)
	}
	return nil
}

// GetByID fetches a batch request by its primary key.
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchRequest, error) {
	var b domain.BatchRequest
	err := r.db.GetContext(ctx, &b, `SELECT * FROM batch_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("batch_repo.GetByID: %w", err)
	}
	return &b, nil
}

// ListUnfulfilled returns batches older than cutoff that still contain at
// least one pending slot, oldest first. The rescan loop replays these so a
// lost notification or mid-batch crash never strands a slot.
func (r *BatchRepository) ListUnfulfilled(ctx context.Context, cutoff time.Time, limit int) ([]*domain.BatchRequest, error) {
	var batches []*domain.BatchRequest
	err := r.db.SelectContext(ctx, &batches, `
		SELECT DISTINCT b.*
		FROM batch_requests b
		JOIN game_slots s
		  ON s.game_id BETWEEN b.start_game_id AND b.end_game_id
		WHERE s.status = 'pending' AND b.created_at <= $1
		ORDER BY b.created_at ASC
		LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("batch_repo.ListUnfulfilled: %w", err)
	}
	return batches, nil
}
