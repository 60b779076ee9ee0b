package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Multiplier sources
// ──────────────────────────────────────────────────────────────────────────────

// multiplierSource draws one candidate multiplier in [MultiplierMin,
// MultiplierMax]. A draw may still equal 100; rejection happens above the
// source so the "never equals the original value" invariant lives in exactly
// one place regardless of which backing supplied the sample.
type multiplierSource interface {
	Draw(ctx context.Context) (int, error)
}

// httpSource draws from the external randomness service's plain-text integer
// endpoint.
//
//	GET /integers/?num=1&min=85&max=115&col=1&base=10&format=plain
//	"103\n"
type httpSource struct {
	client  *http.Client
	baseURL string
}

func (s *httpSource) Draw(ctx context.Context) (int, error) {
	u := fmt.Sprintf("%s/integers/?num=1&min=%d&max=%d&col=1&base=10&format=plain",
		s.baseURL, domain.MultiplierMin, domain.MultiplierMax)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("random source: build request: %w", err)
	}
	req.Header.Set("User-Agent", "emlakbet-housegame/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("random source: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("random source: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("random source: read body: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("random source: parse %q: %w", string(body), err)
	}
	if n < domain.MultiplierMin || n > domain.MultiplierMax {
		return 0, fmt.Errorf("random source: %d outside [%d,%d]", n, domain.MultiplierMin, domain.MultiplierMax)
	}
	return n, nil
}

// localSource is the silent fallback: an in-process PRNG over the same range.
// It never fails, so DerivePrice as a whole is infallible.
type localSource struct{}

func (localSource) Draw(ctx context.Context) (int, error) {
	return domain.MultiplierMin + rand.Intn(domain.MultiplierMax-domain.MultiplierMin+1), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// RandomService
// ──────────────────────────────────────────────────────────────────────────────

// RandomService derives the displayed price shown to players: the actual
// price skewed by a bounded random percentage that is never exactly 100%.
type RandomService struct {
	primary  multiplierSource
	fallback multiplierSource
	maxDraws int
	logger   *slog.Logger
}

// NewRandomService constructs a RandomService backed by the external
// randomness source with a local PRNG fallback.
func NewRandomService(cfg *config.Config, logger *slog.Logger) *RandomService {
	return &RandomService{
		primary: &httpSource{
			client:  &http.Client{Timeout: cfg.Random.FetchTimeout},
			baseURL: cfg.Random.BaseURL,
		},
		fallback: localSource{},
		maxDraws: cfg.Random.MaxDraws,
		logger:   logger,
	}
}

// DerivePrice computes displayedPrice = round(actualPrice × multiplier / 100)
// and returns the multiplier for observability. The multiplier is drawn from
// the primary source with a bounded resample budget; identity (100) draws are
// rejected. On primary failure or budget exhaustion the local fallback takes
// over silently — a randomness-source outage must never fail fulfillment.
func (rs *RandomService) DerivePrice(ctx context.Context, actualPrice decimal.Decimal) (decimal.Decimal, int) {
	m := rs.drawMultiplier(ctx)
	displayed := actualPrice.
		Mul(decimal.NewFromInt(int64(m))).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return displayed, m
}

// drawMultiplier returns a valid multiplier: in range and never 100.
func (rs *RandomService) drawMultiplier(ctx context.Context) int {
	for attempt := 0; attempt < rs.maxDraws; attempt++ {
		m, err := rs.primary.Draw(ctx)
		if err != nil {
			rs.logger.Debug("randomness source unavailable, using local fallback", "err", err)
			break
		}
		if m != domain.MultiplierIdentity {
			return m
		}
		// Identity draw: resample. The draw is cheap and the exclusion is a
		// hard invariant, not best-effort.
	}

	for {
		m, _ := rs.fallback.Draw(ctx)
		if m != domain.MultiplierIdentity {
			return m
		}
	}
}
