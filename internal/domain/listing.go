package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Listing
// ──────────────────────────────────────────────────────────────────────────────

// Listing is one property record returned by the external listings source.
// The descriptive attributes are carried through to clients unmodified; the
// game core only interprets ExternalID and ActualPrice.
type Listing struct {
	ExternalID  string          `json:"external_id"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	ActualPrice decimal.Decimal `json:"actual_price"`
	AreaSqm     int             `json:"area_sqm"`
	Bedrooms    int             `json:"bedrooms"`
	Bathrooms   int             `json:"bathrooms"`
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixed-width listing id encoding
// ──────────────────────────────────────────────────────────────────────────────

// listingIDBytes is the storage width of an encoded listing id: one 32-byte
// word, hex encoded with a 0x prefix (66 characters total).
const listingIDBytes = 32

// EncodeListingID packs an external listing id into its fixed-width ledger
// encoding: the UTF-8 bytes left-padded with zeros to 32 bytes, hex encoded.
// IDs longer than 32 bytes are rejected.
func EncodeListingID(externalID string) (string, error) {
	if externalID == "" {
		return "", fmt.Errorf("%w: empty external id", ErrInvalidListingID)
	}
	raw := []byte(externalID)
	if len(raw) > listingIDBytes {
		return "", fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidListingID, externalID, listingIDBytes)
	}
	buf := make([]byte, listingIDBytes)
	copy(buf[listingIDBytes-len(raw):], raw)
	return "0x" + hex.EncodeToString(buf), nil
}

// DecodeListingID reverses EncodeListingID, recovering the external id.
func DecodeListingID(listingID string) (string, error) {
	if !strings.HasPrefix(listingID, "0x") || len(listingID) != 2+listingIDBytes*2 {
		return "", fmt.Errorf("%w: %q is not a 32-byte hex word", ErrInvalidListingID, listingID)
	}
	raw, err := hex.DecodeString(listingID[2:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidListingID, err)
	}
	i := 0
	for i < len(raw) && raw[i] == 0 {
		i++
	}
	if i == len(raw) {
		return "", fmt.Errorf("%w: all-zero word", ErrInvalidListingID)
	}
	return string(raw[i:]), nil
}
