package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces
// ──────────────────────────────────────────────────────────────────────────────

// SlotSettler is the minimal ledger surface settlement needs.
// Implemented by LedgerService.
type SlotSettler interface {
	PlayedSlots(ctx context.Context, limit int) ([]*domain.GameSlot, error)
	SettleSlot(ctx context.Context, caller string, gameID int64, actualPrice decimal.Decimal) (*domain.GameSlot, error)
}

// ListingLookup resolves a listing by its external id.
// Implemented by EnrichmentService.
type ListingLookup interface {
	FetchListingByID(ctx context.Context, externalID string) (*domain.Listing, error)
}

// Rewarder credits a settled win. Token transfer and balance accounting live
// outside this module; main() may leave it nil, in which case wins are only
// recorded on the slot.
type Rewarder interface {
	Reward(ctx context.Context, player uuid.UUID, gameID int64, amount decimal.Decimal) error
}

// ──────────────────────────────────────────────────────────────────────────────
// SettlementService
// ──────────────────────────────────────────────────────────────────────────────

// SettlementService settles played slots: it recovers the actual price by
// re-fetching the listing behind the slot's encoded listing id and writes the
// result through the ledger. Like fulfillment, each slot is handled
// independently — one failing settlement never blocks the rest.
type SettlementService struct {
	ledger   SlotSettler
	listings ListingLookup
	oracleID string
	limit    int
	logger   *slog.Logger
	rewarder Rewarder // optional, injected post-construction
}

// NewSettlementService builds a SettlementService acting as the given oracle
// identity, settling at most limit slots per pass.
func NewSettlementService(
	ledger SlotSettler,
	listings ListingLookup,
	oracleID string,
	limit int,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		ledger:   ledger,
		listings: listings,
		oracleID: oracleID,
		limit:    limit,
		logger:   logger,
	}
}

// SetRewarder injects the reward backend post-construction.
func (s *SettlementService) SetRewarder(r Rewarder) { s.rewarder = r }

// SettleDueSlots settles every played slot due in this pass. Returns the
// settled slots so the caller can broadcast them; the error covers only the
// initial fetch — per-slot failures are logged and skipped.
func (s *SettlementService) SettleDueSlots(ctx context.Context) ([]*domain.GameSlot, error) {
	slots, err := s.ledger.PlayedSlots(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleDueSlots: fetch: %w", err)
	}

	var settled []*domain.GameSlot
	for _, slot := range slots {
		done, err := s.settleSlot(ctx, slot)
		if err != nil {
			s.logger.Warn("settlement skipped", "game_id", slot.GameID, "err", err)
			continue
		}
		settled = append(settled, done)
	}
	return settled, nil
}

func (s *SettlementService) settleSlot(ctx context.Context, slot *domain.GameSlot) (*domain.GameSlot, error) {
	if slot.ListingID == nil {
		return nil, fmt.Errorf("played slot %d has no listing id", slot.GameID)
	}
	externalID, err := domain.DecodeListingID(*slot.ListingID)
	if err != nil {
		return nil, fmt.Errorf("decode listing id: %w", err)
	}

	listing, err := s.listings.FetchListingByID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	done, err := s.ledger.SettleSlot(ctx, s.oracleID, slot.GameID, listing.ActualPrice)
	if err != nil {
		return nil, err
	}

	if s.rewarder != nil && done.Result != nil && *done.Result == domain.ResultWon {
		// Winner takes the actual price as the prize amount.
		if err := s.rewarder.Reward(ctx, done.Player, done.GameID, listing.ActualPrice); err != nil {
			// The slot is already durably settled; a reward failure is an
			// operational problem, not a settlement one.
			s.logger.Error("reward failed after settlement",
				"game_id", done.GameID, "player", done.Player, "err", err)
		}
	}
	return done, nil
}
