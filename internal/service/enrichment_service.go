package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"

	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// EnrichmentService
// ──────────────────────────────────────────────────────────────────────────────

// EnrichmentService fetches for-sale residential listings from the external
// listings source. FetchListing picks a city uniformly at random from the
// configured catalog, then one listing uniformly at random from the results.
// Failures are wrapped in domain.ErrEnrichmentFailed; there is no internal
// retry — the orchestrator treats a failure as a per-slot skip.
type EnrichmentService struct {
	client    *http.Client
	cfg       *config.EnrichmentConfig
	locations []string
}

// NewEnrichmentService constructs an EnrichmentService from the given config.
func NewEnrichmentService(cfg *config.Config) *EnrichmentService {
	return &EnrichmentService{
		client:    &http.Client{Timeout: cfg.Enrichment.FetchTimeout},
		cfg:       &cfg.Enrichment,
		locations: cfg.Enrichment.Locations,
	}
}

// listingPayload mirrors the listings API wire format.
//
//	GET /api/v1/listings?city=Izmir&status=for-sale&type=residential
//	{"listings":[{"id":"L-901","address":"…","city":"Izmir","price":"3250000",
//	 "area_sqm":120,"bedrooms":3,"bathrooms":1,"lat":38.42,"lng":27.14}, …]}
type listingPayload struct {
	ID        string  `json:"id"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Price     string  `json:"price"`
	AreaSqm   int     `json:"area_sqm"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms int     `json:"bathrooms"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

func (p *listingPayload) toDomain() (*domain.Listing, error) {
	if p.ID == "" || p.Price == "" {
		return nil, fmt.Errorf("listing missing id or price")
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, fmt.Errorf("listing %s price: %w", p.ID, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("listing %s has non-positive price %s", p.ID, price)
	}
	return &domain.Listing{
		ExternalID:  p.ID,
		Address:     p.Address,
		City:        p.City,
		ActualPrice: price,
		AreaSqm:     p.AreaSqm,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Lat:         p.Lat,
		Lng:         p.Lng,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Public API
// ──────────────────────────────────────────────────────────────────────────────

// FetchListing returns one for-sale residential listing chosen uniformly at
// random from a randomly chosen catalog city.
func (es *EnrichmentService) FetchListing(ctx context.Context) (*domain.Listing, error) {
	city := es.locations[rand.Intn(len(es.locations))]
	listing, err := es.fetchByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("%w: city %s: %v", domain.ErrEnrichmentFailed, city, err)
	}
	return listing, nil
}

// FetchListingByID looks a listing up by its external id. Settlement uses
// this to recover the actual price for a slot's encoded listing id.
func (es *EnrichmentService) FetchListingByID(ctx context.Context, externalID string) (*domain.Listing, error) {
	u := fmt.Sprintf("%s/api/v1/listings/%s", es.cfg.BaseURL, url.PathEscape(externalID))
	body, err := es.doGet(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", domain.ErrEnrichmentFailed, externalID, err)
	}

	var payload listingPayload
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: listing %s parse: %v", domain.ErrEnrichmentFailed, externalID, err)
	}
	listing, err := payload.toDomain()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEnrichmentFailed, err)
	}
	return listing, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────────────────────────────────

func (es *EnrichmentService) fetchByCity(ctx context.Context, city string) (*domain.Listing, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("status", "for-sale")
	q.Set("type", "residential")
	u := es.cfg.BaseURL + "/api/v1/listings?" + q.Encode()

	body, err := es.doGet(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Listings []listingPayload `json:"listings"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(resp.Listings) == 0 {
		return nil, fmt.Errorf("empty result set")
	}

	picked := resp.Listings[rand.Intn(len(resp.Listings))]
	return picked.toDomain()
}

// doGet performs an HTTP GET with the service's client and returns the body
// bytes, or an error for any non-200 status code.
func (es *EnrichmentService) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "emlakbet-housegame/1.0")

	resp, err := es.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
