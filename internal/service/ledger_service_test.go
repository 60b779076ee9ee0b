package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newLedger builds a LedgerService with nil repos — enough for the guard
// paths, which reject before any database access.
func newLedger() *service.LedgerService {
	cfg := &config.Config{
		Oracle:      config.OracleConfig{ID: "oracle-1"},
		Fulfillment: config.FulfillmentConfig{NotifyBuffer: 4},
	}
	return service.NewLedgerService(nil, nil, nil, cfg, testLogger())
}

// ── RequestBatch guards ───────────────────────────────────────────────────────

func TestRequestBatch_ZeroSizeRejected(t *testing.T) {
	ledger := newLedger()

	if _, err := ledger.RequestBatch(context.Background(), uuid.New(), 0); !errors.Is(err, domain.ErrInvalidSize) {
		t.Fatalf("RequestBatch(n=0) = %v, want ErrInvalidSize", err)
	}
	if _, err := ledger.RequestBatch(context.Background(), uuid.New(), -3); !errors.Is(err, domain.ErrInvalidSize) {
		t.Fatalf("RequestBatch(n=-3) = %v, want ErrInvalidSize", err)
	}
}

// ── Oracle caller guards ──────────────────────────────────────────────────────

func TestInitializeSlot_NonOracleCallerRejected(t *testing.T) {
	ledger := newLedger()

	listingID, err := domain.EncodeListingID("L-901")
	if err != nil {
		t.Fatalf("encode listing id: %v", err)
	}

	err = ledger.InitializeSlot(context.Background(), "not-the-oracle", 1, listingID, decimal.NewFromInt(500000))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("InitializeSlot with wrong caller = %v, want ErrUnauthorized", err)
	}
}

func TestInitializeSlot_MalformedListingIDRejected(t *testing.T) {
	ledger := newLedger()

	// Correct caller, but the listing id is not a 32-byte hex word.
	err := ledger.InitializeSlot(context.Background(), "oracle-1", 1, "L-901", decimal.NewFromInt(500000))
	if !errors.Is(err, domain.ErrInvalidListingID) {
		t.Fatalf("InitializeSlot with raw external id = %v, want ErrInvalidListingID", err)
	}
}

func TestSettleSlot_NonOracleCallerRejected(t *testing.T) {
	ledger := newLedger()

	_, err := ledger.SettleSlot(context.Background(), "not-the-oracle", 1, decimal.NewFromInt(450000))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("SettleSlot with wrong caller = %v, want ErrUnauthorized", err)
	}
}
