package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// LedgerService
// ──────────────────────────────────────────────────────────────────────────────

// LedgerService is the sole authority over game-slot identity, status and
// batch membership. Every status transition runs as an atomic check-and-set
// in the slot repository, so concurrent or replayed calls can never advance
// a slot twice.
type LedgerService struct {
	db        *sqlx.DB
	slotRepo  *repository.SlotRepository
	batchRepo *repository.BatchRepository
	cfg       *config.Config
	logger    *slog.Logger

	// notifyCh delivers batch-created notifications to the orchestrator.
	// Sends never block: if the buffer is full the notification is dropped
	// and the rescan loop picks the batch up later (at-least-once overall).
	notifyCh chan domain.BatchGamesCreated
}

// NewLedgerService builds a LedgerService.
func NewLedgerService(
	db *sqlx.DB,
	slotRepo *repository.SlotRepository,
	batchRepo *repository.BatchRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		db:        db,
		slotRepo:  slotRepo,
		batchRepo: batchRepo,
		cfg:       cfg,
		logger:    logger,
		notifyCh:  make(chan domain.BatchGamesCreated, cfg.Fulfillment.NotifyBuffer),
	}
}

// Notifications exposes the batch-created feed consumed by the scheduler.
func (s *LedgerService) Notifications() <-chan domain.BatchGamesCreated {
	return s.notifyCh
}

// ──────────────────────────────────────────────────────────────────────────────
// RequestBatch
// ──────────────────────────────────────────────────────────────────────────────

// RequestBatch allocates n fresh, globally unique, contiguous game ids,
// creates n pending slots, records the batch, and emits a BatchGamesCreated
// notification. The id allocation and slot insertion share one transaction,
// so a range can never exist without its slots.
func (s *LedgerService) RequestBatch(ctx context.Context, player uuid.UUID, n int64) (*domain.BatchRequest, error) {
	if n < 1 {
		return nil, domain.ErrInvalidSize
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.RequestBatch: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	start, err := s.batchRepo.AllocateRange(ctx, tx, n)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.RequestBatch: allocate: %w", err)
	}

	now := time.Now().UTC()
	batch := &domain.BatchRequest{
		ID:          uuid.New(),
		Player:      player,
		StartGameID: start,
		EndGameID:   start + n - 1,
		CreatedAt:   now,
	}

	slots := make([]*domain.GameSlot, 0, n)
	for id := batch.StartGameID; id <= batch.EndGameID; id++ {
		slots = append(slots, &domain.GameSlot{
			GameID:    id,
			Player:    player,
			Status:    domain.SlotPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err = s.slotRepo.InsertBatch(ctx, tx, slots); err != nil {
		return nil, fmt.Errorf("ledger_service.RequestBatch: insert slots: %w", err)
	}
	if err = s.batchRepo.Insert(ctx, tx, batch); err != nil {
		return nil, fmt.Errorf("ledger_service.RequestBatch: insert batch: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ledger_service.RequestBatch: commit: %w", err)
	}

	s.logger.Info("batch created",
		"player", player, "start", batch.StartGameID, "end", batch.EndGameID)

	// Non-blocking emit; dropped notifications are recovered by the rescan loop.
	select {
	case s.notifyCh <- domain.BatchGamesCreated{
		Player:      player,
		StartGameID: batch.StartGameID,
		EndGameID:   batch.EndGameID,
		Timestamp:   now,
	}:
	default:
		s.logger.Warn("notification buffer full, batch left to rescan",
			"start", batch.StartGameID, "end", batch.EndGameID)
	}

	return batch, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// InitializeSlot — oracle only
// ──────────────────────────────────────────────────────────────────────────────

// InitializeSlot writes the enrichment result onto a pending slot and
// advances it to initialized. Only the configured oracle identity may call
// it. If the slot is not pending the call fails with ErrInvalidState and has
// no side effects — the idempotency contract replayed fulfillment relies on.
func (s *LedgerService) InitializeSlot(ctx context.Context, caller string, gameID int64, listingID string, displayedPrice decimal.Decimal) error {
	if caller != s.cfg.Oracle.ID {
		return domain.ErrUnauthorized
	}
	if _, err := domain.DecodeListingID(listingID); err != nil {
		return fmt.Errorf("ledger_service.InitializeSlot: %w", err)
	}
	if !displayedPrice.IsPositive() {
		return fmt.Errorf("ledger_service.InitializeSlot: displayed price must be positive, got %s", displayedPrice)
	}
	if err := s.slotRepo.MarkInitialized(ctx, gameID, listingID, displayedPrice); err != nil {
		return err
	}
	s.logger.Debug("slot initialized", "game_id", gameID, "listing_id", listingID)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaySlot / SettleSlot — downstream lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// PlaySlot locks in the owner's guess on an initialized slot.
func (s *LedgerService) PlaySlot(ctx context.Context, player uuid.UUID, gameID int64, guess domain.Guess) (*domain.GameSlot, error) {
	if !guess.IsValid() {
		return nil, domain.ErrInvalidGuess
	}
	if err := s.slotRepo.MarkPlayed(ctx, gameID, player, guess); err != nil {
		return nil, err
	}
	slot, err := s.slotRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("slot played", "game_id", gameID, "player", player, "guess", guess)
	return slot, nil
}

// SettleSlot reveals the actual price on a played slot and records the
// result. Restricted to the oracle identity; the actual price stays out of
// player-visible state until this point.
func (s *LedgerService) SettleSlot(ctx context.Context, caller string, gameID int64, actualPrice decimal.Decimal) (*domain.GameSlot, error) {
	if caller != s.cfg.Oracle.ID {
		return nil, domain.ErrUnauthorized
	}
	if !actualPrice.IsPositive() {
		return nil, fmt.Errorf("ledger_service.SettleSlot: actual price must be positive, got %s", actualPrice)
	}

	slot, err := s.slotRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if slot.Status != domain.SlotPlayed || slot.Guess == nil || slot.DisplayedPrice == nil {
		return nil, domain.ErrInvalidState
	}

	result := domain.DecideResult(*slot.Guess, *slot.DisplayedPrice, actualPrice)
	// MarkSettled re-checks status='played' atomically, so a concurrent
	// settlement attempt loses with ErrInvalidState rather than double-writing.
	if err = s.slotRepo.MarkSettled(ctx, gameID, actualPrice, result); err != nil {
		return nil, err
	}

	slot, err = s.slotRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("slot settled",
		"game_id", gameID, "result", result, "actual", actualPrice.StringFixed(2))
	return slot, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read side
// ──────────────────────────────────────────────────────────────────────────────

// GetSlot returns a slot by id. Callers serving players should use
// GameSlot.PublicView to redact the actual price before settlement.
func (s *LedgerService) GetSlot(ctx context.Context, gameID int64) (*domain.GameSlot, error) {
	return s.slotRepo.GetByID(ctx, gameID)
}

// ListPlayerSlots returns a page of the player's slots, newest first.
func (s *LedgerService) ListPlayerSlots(ctx context.Context, player uuid.UUID, limit, offset int) ([]*domain.GameSlot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.slotRepo.ListByPlayer(ctx, player, limit, offset)
}

// PendingInRange returns pending slot ids within a batch range, ascending.
func (s *LedgerService) PendingInRange(ctx context.Context, startGameID, endGameID int64) ([]int64, error) {
	return s.slotRepo.ListPendingInRange(ctx, startGameID, endGameID)
}

// UnfulfilledBatches returns batches older than age that still hold pending
// slots; the scheduler replays these.
func (s *LedgerService) UnfulfilledBatches(ctx context.Context, age time.Duration, limit int) ([]*domain.BatchRequest, error) {
	return s.batchRepo.ListUnfulfilled(ctx, time.Now().UTC().Add(-age), limit)
}

// PlayedSlots returns played slots awaiting settlement, oldest first.
func (s *LedgerService) PlayedSlots(ctx context.Context, limit int) ([]*domain.GameSlot, error) {
	return s.slotRepo.ListPlayed(ctx, limit)
}
