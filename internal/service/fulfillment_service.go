package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into FulfillmentService
// ──────────────────────────────────────────────────────────────────────────────

// SlotInitializer is the minimal ledger surface fulfillment needs.
// Implemented by LedgerService.
type SlotInitializer interface {
	InitializeSlot(ctx context.Context, caller string, gameID int64, listingID string, displayedPrice decimal.Decimal) error
}

// ListingFetcher is the minimal enrichment surface fulfillment needs.
// Implemented by EnrichmentService.
type ListingFetcher interface {
	FetchListing(ctx context.Context) (*domain.Listing, error)
}

// PriceDeriver is the minimal randomizer surface fulfillment needs.
// Implemented by RandomService.
type PriceDeriver interface {
	DerivePrice(ctx context.Context, actualPrice decimal.Decimal) (decimal.Decimal, int)
}

// ──────────────────────────────────────────────────────────────────────────────
// FulfillmentService
// ──────────────────────────────────────────────────────────────────────────────

// FulfillmentService turns one batch-created notification into a best-effort,
// per-item-isolated completion of all pending slots in the batch's range.
//
// Items are visited strictly in increasing id order and strictly
// sequentially: the oracle signs every ledger write from one identity, and
// sequential submission keeps per-identity ordering deterministic without any
// cross-item locking. Correctness under replay rests entirely on the
// ledger's per-slot check-and-set, so overlapping invocations from separate
// orchestrator instances are safe.
type FulfillmentService struct {
	ledger   SlotInitializer
	listings ListingFetcher
	pricer   PriceDeriver
	oracleID string
	logger   *slog.Logger
}

// NewFulfillmentService builds a FulfillmentService acting as the given
// oracle identity.
func NewFulfillmentService(
	ledger SlotInitializer,
	listings ListingFetcher,
	pricer PriceDeriver,
	oracleID string,
	logger *slog.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		ledger:   ledger,
		listings: listings,
		pricer:   pricer,
		oracleID: oracleID,
		logger:   logger,
	}
}

// FulfillBatch processes every id in [n.StartGameID, n.EndGameID] and returns
// the complete report. A single slot's failure never aborts the batch:
// failed slots stay pending and are completed by a later pass over the same
// range.
func (s *FulfillmentService) FulfillBatch(ctx context.Context, n domain.BatchGamesCreated) *domain.FulfillmentReport {
	report := &domain.FulfillmentReport{
		Player:      n.Player,
		StartGameID: n.StartGameID,
		EndGameID:   n.EndGameID,
		StartedAt:   time.Now().UTC(),
	}

	for gameID := n.StartGameID; gameID <= n.EndGameID; gameID++ {
		s.fulfillSlot(ctx, gameID, report)
	}

	report.FinishedAt = time.Now().UTC()
	s.logger.Info("batch fulfillment finished",
		"start", n.StartGameID, "end", n.EndGameID,
		"succeeded", report.Succeeded(), "failed", report.Failed())
	return report
}

// fulfillSlot drives one slot through enrichment → price derivation → ledger
// write and appends exactly one outcome entry.
func (s *FulfillmentService) fulfillSlot(ctx context.Context, gameID int64, report *domain.FulfillmentReport) {
	listing, err := s.listings.FetchListing(ctx)
	if err != nil {
		s.logger.Warn("enrichment failed, slot left pending", "game_id", gameID, "err", err)
		report.Append(gameID, domain.OutcomeFailed, domain.ReasonEnrichment)
		return
	}

	listingID, err := domain.EncodeListingID(listing.ExternalID)
	if err != nil {
		// An unencodable id is an enrichment-quality problem, not a ledger one.
		s.logger.Warn("listing id not encodable, slot left pending",
			"game_id", gameID, "external_id", listing.ExternalID, "err", err)
		report.Append(gameID, domain.OutcomeFailed, domain.ReasonEnrichment)
		return
	}

	displayedPrice, multiplier := s.pricer.DerivePrice(ctx, listing.ActualPrice)

	err = s.ledger.InitializeSlot(ctx, s.oracleID, gameID, listingID, displayedPrice)
	switch {
	case err == nil:
		s.logger.Debug("slot fulfilled",
			"game_id", gameID, "listing", listing.ExternalID,
			"multiplier", multiplier, "displayed", displayedPrice.StringFixed(2))
		report.Append(gameID, domain.OutcomeSuccess, "")
	case errors.Is(err, domain.ErrInvalidState):
		// Benign replay: the slot was already handled by an earlier pass.
		report.Append(gameID, domain.OutcomeSuccess, domain.ReasonAlreadyInitialized)
	default:
		s.logger.Warn("ledger write failed, slot left pending", "game_id", gameID, "err", err)
		report.Append(gameID, domain.OutcomeFailed, domain.ReasonTransaction)
	}
}
