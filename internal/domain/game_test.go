package domain_test

import (
	"testing"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Slot lifecycle ────────────────────────────────────────────────────────────

func TestSlotStatus_Next(t *testing.T) {
	steps := map[domain.SlotStatus]domain.SlotStatus{
		domain.SlotPending:     domain.SlotInitialized,
		domain.SlotInitialized: domain.SlotPlayed,
		domain.SlotPlayed:      domain.SlotSettled,
		domain.SlotSettled:     "",
	}
	for from, want := range steps {
		if got := from.Next(); got != want {
			t.Errorf("%s.Next() = %q, want %q", from, got, want)
		}
	}
}

func TestSlotStatus_CanTransitionTo(t *testing.T) {
	if !domain.SlotPending.CanTransitionTo(domain.SlotInitialized) {
		t.Error("pending → initialized should be legal")
	}
	// No skipping.
	if domain.SlotPending.CanTransitionTo(domain.SlotPlayed) {
		t.Error("pending → played must not be legal")
	}
	// No going back.
	if domain.SlotPlayed.CanTransitionTo(domain.SlotInitialized) {
		t.Error("played → initialized must not be legal")
	}
	// Settled is terminal.
	if domain.SlotSettled.CanTransitionTo(domain.SlotPending) {
		t.Error("settled must be terminal")
	}
}

func TestSlotStatus_IsValid(t *testing.T) {
	for _, s := range []domain.SlotStatus{
		domain.SlotPending, domain.SlotInitialized, domain.SlotPlayed, domain.SlotSettled,
	} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if domain.SlotStatus("cancelled").IsValid() {
		t.Error("cancelled should not be a valid status")
	}
}

func TestGuess_IsValid(t *testing.T) {
	if !domain.GuessOver.IsValid() || !domain.GuessUnder.IsValid() {
		t.Error("OVER and UNDER should be valid guesses")
	}
	if domain.Guess("EXACT").IsValid() {
		t.Error("EXACT should not be a valid guess")
	}
}

// ── Result decision ───────────────────────────────────────────────────────────

func TestDecideResult(t *testing.T) {
	displayed := decimal.NewFromInt(500000)

	cases := []struct {
		name   string
		guess  domain.Guess
		actual int64
		want   domain.SlotResult
	}{
		{"over guess, actual above", domain.GuessOver, 550000, domain.ResultWon},
		{"over guess, actual below", domain.GuessOver, 450000, domain.ResultLost},
		{"under guess, actual below", domain.GuessUnder, 450000, domain.ResultWon},
		{"under guess, actual above", domain.GuessUnder, 550000, domain.ResultLost},
	}
	for _, tc := range cases {
		got := domain.DecideResult(tc.guess, displayed, decimal.NewFromInt(tc.actual))
		if got != tc.want {
			t.Errorf("%s: DecideResult = %s, want %s", tc.name, got, tc.want)
		}
	}
}

// ── Public view redaction ─────────────────────────────────────────────────────

func TestGameSlot_PublicView_RedactsUntilSettled(t *testing.T) {
	actual := decimal.NewFromInt(480000)
	result := domain.ResultWon
	slot := &domain.GameSlot{
		GameID:      7,
		Player:      uuid.New(),
		Status:      domain.SlotPlayed,
		ActualPrice: &actual,
		Result:      &result,
	}

	v := slot.PublicView()
	if v.ActualPrice != nil {
		t.Error("actual price must be hidden before settlement")
	}
	if v.Result != nil {
		t.Error("result must be hidden before settlement")
	}
	// Source slot is untouched.
	if slot.ActualPrice == nil {
		t.Error("PublicView must not mutate the source slot")
	}

	slot.Status = domain.SlotSettled
	v = slot.PublicView()
	if v.ActualPrice == nil || !v.ActualPrice.Equal(actual) {
		t.Error("actual price must be visible after settlement")
	}
	if v.Result == nil || *v.Result != domain.ResultWon {
		t.Error("result must be visible after settlement")
	}
}

// ── Listing id codec ──────────────────────────────────────────────────────────

func TestEncodeListingID_RoundTrip(t *testing.T) {
	for _, id := range []string{"L-901", "a", "IST-2024-000123", "kadikoy/34710-7"} {
		enc, err := domain.EncodeListingID(id)
		if err != nil {
			t.Fatalf("EncodeListingID(%q) error: %v", id, err)
		}
		if len(enc) != 66 || enc[:2] != "0x" {
			t.Errorf("EncodeListingID(%q) = %q, want 0x-prefixed 66 chars", id, enc)
		}
		dec, err := domain.DecodeListingID(enc)
		if err != nil {
			t.Fatalf("DecodeListingID(%q) error: %v", enc, err)
		}
		if dec != id {
			t.Errorf("round trip %q → %q", id, dec)
		}
	}
}

func TestEncodeListingID_Rejects(t *testing.T) {
	if _, err := domain.EncodeListingID(""); err == nil {
		t.Error("empty id should be rejected")
	}
	long := "this-external-listing-id-is-way-past-thirty-two-bytes"
	if _, err := domain.EncodeListingID(long); err == nil {
		t.Error("over-long id should be rejected")
	}
}

func TestDecodeListingID_Rejects(t *testing.T) {
	bad := []string{
		"",
		"00ff",
		"0x1234", // too short
		"0x" + string(make([]byte, 64)),                                       // not hex
		"0x0000000000000000000000000000000000000000000000000000000000000000", // all zero
	}
	for _, in := range bad {
		if _, err := domain.DecodeListingID(in); err == nil {
			t.Errorf("DecodeListingID(%q) should fail", in)
		}
	}
}

// ── Batch helpers ─────────────────────────────────────────────────────────────

func TestBatchRequest_Size(t *testing.T) {
	b := &domain.BatchRequest{StartGameID: 10, EndGameID: 14}
	if b.Size() != 5 {
		t.Errorf("Size() = %d, want 5", b.Size())
	}
	single := &domain.BatchRequest{StartGameID: 3, EndGameID: 3}
	if single.Size() != 1 {
		t.Errorf("Size() = %d, want 1", single.Size())
	}
}

// ── Fulfillment report ────────────────────────────────────────────────────────

func TestFulfillmentReport_Counts(t *testing.T) {
	r := &domain.FulfillmentReport{StartGameID: 1, EndGameID: 4}
	r.Append(1, domain.OutcomeSuccess, "")
	r.Append(2, domain.OutcomeFailed, domain.ReasonEnrichment)
	r.Append(3, domain.OutcomeSuccess, domain.ReasonAlreadyInitialized)
	r.Append(4, domain.OutcomeFailed, domain.ReasonTransaction)

	if got := r.Succeeded(); got != 2 {
		t.Errorf("Succeeded() = %d, want 2", got)
	}
	if got := r.Failed(); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
	// Visit order is preserved.
	for i, want := range []int64{1, 2, 3, 4} {
		if r.Items[i].GameID != want {
			t.Errorf("Items[%d].GameID = %d, want %d", i, r.Items[i].GameID, want)
		}
	}
}
