package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func randomCfg(baseURL string) *config.Config {
	return &config.Config{
		Random: config.RandomConfig{
			BaseURL:      baseURL,
			FetchTimeout: 0, // no timeout against the local test server
			MaxDraws:     5,
		},
	}
}

// ── Remote multiplier path ────────────────────────────────────────────────────

func TestDerivePrice_UsesRemoteMultiplier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("num"); got != "1" {
			t.Errorf("num = %q, want 1", got)
		}
		if got := r.URL.Query().Get("min"); got != "85" {
			t.Errorf("min = %q, want 85", got)
		}
		if got := r.URL.Query().Get("max"); got != "115" {
			t.Errorf("max = %q, want 115", got)
		}
		fmt.Fprintln(w, "115")
	}))
	defer srv.Close()

	rs := service.NewRandomService(randomCfg(srv.URL), testLogger())

	displayed, m := rs.DerivePrice(context.Background(), decimal.NewFromInt(500000))
	if m != 115 {
		t.Fatalf("multiplier = %d, want 115", m)
	}
	if want := decimal.NewFromInt(575000); !displayed.Equal(want) {
		t.Errorf("displayed = %s, want %s", displayed, want)
	}
}

func TestDerivePrice_RoundsToWholeUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "85")
	}))
	defer srv.Close()

	rs := service.NewRandomService(randomCfg(srv.URL), testLogger())

	// 333333 × 85 / 100 = 283333.05 → 283333
	displayed, _ := rs.DerivePrice(context.Background(), decimal.NewFromInt(333333))
	if want := decimal.NewFromInt(283333); !displayed.Equal(want) {
		t.Errorf("displayed = %s, want %s", displayed, want)
	}
}

// ── Identity rejection ────────────────────────────────────────────────────────

func TestDerivePrice_ResamplesIdentityDraw(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			fmt.Fprintln(w, "100")
			return
		}
		fmt.Fprintln(w, "107")
	}))
	defer srv.Close()

	rs := service.NewRandomService(randomCfg(srv.URL), testLogger())

	_, m := rs.DerivePrice(context.Background(), decimal.NewFromInt(100000))
	if m != 107 {
		t.Fatalf("multiplier = %d, want the resampled 107", m)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("source called %d times, want 2", got)
	}
}

func TestDerivePrice_NeverIdentity(t *testing.T) {
	// Source keeps answering 100; after the resample budget the local
	// fallback must take over and still never return 100.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "100")
	}))
	defer srv.Close()

	rs := service.NewRandomService(randomCfg(srv.URL), testLogger())

	for i := 0; i < 50; i++ {
		_, m := rs.DerivePrice(context.Background(), decimal.NewFromInt(100000))
		if m == domain.MultiplierIdentity {
			t.Fatal("multiplier 100 must never be committed")
		}
		if m < domain.MultiplierMin || m > domain.MultiplierMax {
			t.Fatalf("multiplier %d outside [%d,%d]", m, domain.MultiplierMin, domain.MultiplierMax)
		}
	}
}

// ── Fallback path ─────────────────────────────────────────────────────────────

func TestDerivePrice_FallsBackWhenSourceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rs := service.NewRandomService(randomCfg(srv.URL), testLogger())

	// DerivePrice is infallible: a dead randomness source degrades to the
	// local PRNG without surfacing an error.
	for i := 0; i < 50; i++ {
		displayed, m := rs.DerivePrice(context.Background(), decimal.NewFromInt(200000))
		if m < domain.MultiplierMin || m > domain.MultiplierMax || m == domain.MultiplierIdentity {
			t.Fatalf("fallback multiplier %d invalid", m)
		}
		want := decimal.NewFromInt(int64(m) * 200000).Div(decimal.NewFromInt(100)).Round(0)
		if !displayed.Equal(want) {
			t.Errorf("displayed = %s, want %s for m=%d", displayed, want, m)
		}
	}
}
