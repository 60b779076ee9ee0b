package handler

import (
	"net/http"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/gin-gonic/gin"
)

// ListingHandler serves the enrichment preview endpoint: a dry run of the
// fulfillment pipeline that fetches a random listing and derives the contract
// payload without touching any slot.
type ListingHandler struct {
	listings *service.EnrichmentService
	pricer   *service.RandomService
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(listings *service.EnrichmentService, pricer *service.RandomService) *ListingHandler {
	return &ListingHandler{listings: listings, pricer: pricer}
}

// PreviewListing godoc
// GET /api/listing
//
// Returns a randomly selected listing together with the exact values a
// fulfillment pass would write on-chain for it. The actual price appears here
// because the preview is bound to no slot; on a live slot it stays hidden
// until settlement.
func (h *ListingHandler) PreviewListing(c *gin.Context) {
	listing, err := h.listings.FetchListing(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "ERR_ENRICHMENT", "could not fetch a listing")
		return
	}

	listingID, err := domain.EncodeListingID(listing.ExternalID)
	if err != nil {
		respondError(c, http.StatusBadGateway, "ERR_ENRICHMENT", "listing id not encodable")
		return
	}

	displayed, multiplier := h.pricer.DerivePrice(c.Request.Context(), listing.ActualPrice)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"location": listing.City,
		"listing":  listing,
		"derived_contract_data": gin.H{
			"listing_id":      listingID,
			"multiplier":      multiplier,
			"displayed_price": displayed,
			"actual_price":    listing.ActualPrice,
		},
	})
}
