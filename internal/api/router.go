package api

import (
	"net/http"

	"github.com/emlakbet/housegame/internal/api/handler"
	"github.com/emlakbet/housegame/internal/api/middleware"
	"github.com/emlakbet/housegame/internal/config"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/emlakbet/housegame/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	LedgerSvc *service.LedgerService
	ListSvc   *service.EnrichmentService
	RandomSvc *service.RandomService
	TokenSvc  *service.TokenService
	Hub       *ws.Hub
	Cfg       *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		payload := gin.H{"status": "ok"}
		if deps.Hub != nil {
			payload["ws_clients"] = deps.Hub.ConnectedCount()
		}
		c.JSON(http.StatusOK, payload)
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	gameH := handler.NewGameHandler(deps.LedgerSvc)
	listingH := handler.NewListingHandler(deps.ListSvc, deps.RandomSvc)
	oracleH := handler.NewOracleHandler(deps.LedgerSvc)

	// ── Oracle auth middleware ───────────────────────────────────────────────
	oracleMW := middleware.OracleAuthMiddleware(deps.TokenSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	gameRL := middleware.RateLimitMiddleware(30)   // 30 req/s per IP for game endpoints
	previewRL := middleware.RateLimitMiddleware(5) // preview hits two upstreams per call

	api := r.Group("/api")
	{
		// ── Games (player-facing) ────────────────────────────────────────────
		games := api.Group("/games")
		games.Use(gameRL)
		{
			games.POST("/batch", gameH.RequestBatch)
			games.GET("", gameH.ListGames)
			games.GET("/:id", gameH.GetGame)
			games.POST("/:id/play", gameH.PlayGame)
		}

		// ── Listing preview (public, strict rate limit) ──────────────────────
		listing := api.Group("/listing")
		listing.Use(previewRL)
		{
			listing.GET("", listingH.PreviewListing)
		}

		// ── Oracle writes (token protected) ──────────────────────────────────
		oracle := api.Group("/oracle")
		oracle.Use(oracleMW)
		{
			oracle.POST("/initialize", oracleH.InitializeSlot)
			oracle.POST("/settle", oracleH.SettleSlot)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			// Production: allow only emlakbet.com (and www.)
			allowed := map[string]bool{
				"https://emlakbet.com":     true,
				"https://www.emlakbet.com": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
