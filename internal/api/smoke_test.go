// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests do NOT require a PostgreSQL database — they verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - Oracle auth middleware (401 without token, 401 with bad token)
//   - Response format consistency (success/error envelope)
//   - CORS preflight handling
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emlakbet/housegame/internal/api"
	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/emlakbet/housegame/internal/ws"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		Oracle: config.OracleConfig{
			ID:     "oracle-test",
			Secret: "test-oracle-secret-abcdefghijklmnop",
			TTL:    time.Hour,
		},
		Fulfillment: config.FulfillmentConfig{
			NotifyBuffer: 4,
		},
	}
}

// buildTestRouter creates a Gin engine with a real TokenService (no DB needed
// for token verification) and nil for everything that requires a DB.
func buildTestRouter(t *testing.T) (http.Handler, *service.TokenService) {
	t.Helper()
	cfg := testCfg()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokenSvc := service.NewTokenService(cfg.Oracle.Secret, cfg.Oracle.ID, cfg.Oracle.TTL)
	// NewLedgerService with nil repos works for the validation-only paths.
	ledgerSvc := service.NewLedgerService(nil, nil, nil, cfg, logger)

	r := api.SetupRouter(api.RouterDeps{
		LedgerSvc: ledgerSvc,
		ListSvc:   nil,
		RandomSvc: nil,
		TokenSvc:  tokenSvc,
		Hub:       nil,
		Cfg:       cfg,
	})
	return r, tokenSvc
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v — body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

func TestHealthEndpoint_ReportsWsClients(t *testing.T) {
	cfg := testCfg()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := api.SetupRouter(api.RouterDeps{
		LedgerSvc: service.NewLedgerService(nil, nil, nil, cfg, logger),
		TokenSvc:  service.NewTokenService(cfg.Oracle.Secret, cfg.Oracle.ID, cfg.Oracle.TTL),
		Hub:       ws.NewHub(nil),
		Cfg:       cfg,
	})

	rr := do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	// A hub with no connections reports zero clients.
	if got, ok := body["ws_clients"].(float64); !ok || got != 0 {
		t.Errorf("health.ws_clients = %v, want 0", body["ws_clients"])
	}
}

// ── Game endpoints — validation layer ─────────────────────────────────────────

func TestRequestBatch_MissingFields(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/games/batch", `{}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/games/batch empty body = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] == nil {
		t.Errorf("error envelope missing 'code', got: %v", body)
	}
}

func TestRequestBatch_InvalidPlayer(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/games/batch", `{"player":"not-a-uuid","size":3}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("batch with invalid player = %d, want 400", rr.Code)
	}
}

func TestGetGame_InvalidID(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/games/abc", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/games/abc = %d, want 400", rr.Code)
	}
}

func TestPlayGame_InvalidGuess(t *testing.T) {
	h, _ := buildTestRouter(t)
	payload := `{"player":"11111111-1111-1111-1111-111111111111","guess":"EXACT"}`
	rr := do(t, h, http.MethodPost, "/api/games/7/play", payload, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("play with invalid guess = %d, want 400", rr.Code)
	}
}

func TestListGames_MissingPlayer(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/games", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/games without player = %d, want 400", rr.Code)
	}
}

// ── Oracle auth middleware (no token → 401) ───────────────────────────────────

func TestOracleInitialize_NoToken_Returns401(t *testing.T) {
	h, _ := buildTestRouter(t)
	payload := `{"game_id":1,"listing_id":"0x00","displayed_price":"500000"}`
	rr := do(t, h, http.MethodPost, "/api/oracle/initialize", payload, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/oracle/initialize without token = %d, want 401", rr.Code)
	}
}

func TestOracleSettle_NoToken_Returns401(t *testing.T) {
	h, _ := buildTestRouter(t)
	payload := `{"game_id":1,"actual_price":"450000"}`
	rr := do(t, h, http.MethodPost, "/api/oracle/settle", payload, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/oracle/settle without token = %d, want 401", rr.Code)
	}
}

// ── Oracle auth middleware (invalid token → 401) ──────────────────────────────

func TestOracleInitialize_InvalidToken_Returns401(t *testing.T) {
	h, _ := buildTestRouter(t)
	payload := `{"game_id":1,"listing_id":"0x00","displayed_price":"500000"}`
	rr := do(t, h, http.MethodPost, "/api/oracle/initialize", payload, map[string]string{
		"Authorization": "Bearer not.a.valid.jwt",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("initialize with bad token = %d, want 401", rr.Code)
	}
}

// ── Oracle endpoints — validation behind a valid token ────────────────────────

func TestOracleInitialize_ValidToken_BadBody_Returns400(t *testing.T) {
	h, tokens := buildTestRouter(t)
	token, err := tokens.MintOracleToken()
	if err != nil {
		t.Fatalf("MintOracleToken: %v", err)
	}

	rr := do(t, h, http.MethodPost, "/api/oracle/initialize", `{}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("initialize with empty body = %d, want 400", rr.Code)
	}
}

func TestOracleInitialize_ValidToken_BadListingID_Returns400(t *testing.T) {
	h, tokens := buildTestRouter(t)
	token, err := tokens.MintOracleToken()
	if err != nil {
		t.Fatalf("MintOracleToken: %v", err)
	}

	// Well-formed request, but the listing id is not a 32-byte hex word.
	payload := `{"game_id":1,"listing_id":"L-901","displayed_price":"500000"}`
	rr := do(t, h, http.MethodPost, "/api/oracle/initialize", payload, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("initialize with malformed listing id = %d, want 400", rr.Code)
	}
}

// ── Public routes ─────────────────────────────────────────────────────────────

func TestGames_ArePublic(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/games/abc", "", nil)
	if rr.Code == http.StatusUnauthorized {
		t.Error("GET /api/games/:id should be a public endpoint (no 401)")
	}
}

// ── Error envelope format ─────────────────────────────────────────────────────

func TestErrorEnvelope_HasRequiredFields(t *testing.T) {
	h, _ := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/games/batch", `{}`, nil)
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing field %q, got: %v", field, body)
		}
	}
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
}

// ── CORS headers ──────────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	h, _ := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/games/batch", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	// OPTIONS should return 204 (no content) in dev mode
	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/games/batch = %d, want 204 or 200", rr.Code)
	}
	allow := rr.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allow, "POST") {
		t.Errorf("Access-Control-Allow-Methods missing POST, got %q", allow)
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	h, _ := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	// In dev mode, CORS origin should be wildcard
	origin := rr.Header().Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("Dev CORS origin = %q, want *", origin)
	}
}
