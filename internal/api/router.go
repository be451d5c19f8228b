package api

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/api/handler"
	"github.com/evetabi/predictarena/internal/api/middleware"
	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/evetabi/predictarena/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	MarketSvc     *service.MarketService
	TradeSvc      *service.TradeService
	StakeSvc      *service.StakeService
	SettlementSvc *service.SettlementService
	TournamentSvc *service.TournamentService
	StatsSvc      *service.StatsService
	Hub           *ws.Hub
	Cfg           *config.Config
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
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.StatsSvc, deps.TradeSvc, deps.StakeSvc)
	marketH := handler.NewMarketHandler(deps.MarketSvc, deps.StakeSvc, deps.SettlementSvc)
	tradeH := handler.NewTradeHandler(deps.TradeSvc)
	stakeH := handler.NewStakeHandler(deps.StakeSvc, deps.SettlementSvc)
	tournamentH := handler.NewTournamentHandler(deps.TournamentSvc)

	// ── Identity ─────────────────────────────────────────────────────────────
	// Mutations take the caller from the bearer token when one is sent and
	// demand it when AUTH_REQUIRED is set.
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)
	actorMW := middleware.IdentityMiddleware(deps.AuthSvc, deps.Cfg.Auth.Required)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10) // 10 req/s per caller for login
	writeRL := middleware.RateLimitMiddleware(deps.Cfg.Server.TradeRateLimit)

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/challenge", userH.Challenge)
			auth.POST("/token", userH.IssueToken)
		}

		// ── Reads (public) ───────────────────────────────────────────────────
		api.GET("/markets", marketH.List)
		api.GET("/markets/:id", marketH.GetByID)
		api.GET("/markets/:id/trades", marketH.Trades)
		api.GET("/markets/:id/stakes", marketH.Stakes)
		api.GET("/markets/:id/insights", marketH.Insights)
		api.GET("/trades/:id", tradeH.GetByID)
		api.GET("/stakes/:id", stakeH.GetByID)
		api.GET("/tournaments", tournamentH.List)
		api.GET("/tournaments/:id", tournamentH.GetByID)
		api.GET("/tournaments/:id/leaderboard", tournamentH.Leaderboard)
		api.GET("/users/:address", userH.GetByAddress)
		api.GET("/users/:address/trades", userH.Trades)
		api.GET("/users/:address/stakes", userH.Stakes)
		api.GET("/leaderboard", userH.Leaderboard)
		api.GET("/stats", userH.Stats)

		// ── Mutations ────────────────────────────────────────────────────────
		write := api.Group("")
		write.Use(actorMW, writeRL)
		{
			write.POST("/markets", marketH.Create)
			write.POST("/markets/:id/resolve", marketH.Resolve)
			write.POST("/trades", tradeH.Execute)
			write.POST("/stakes", stakeH.Create)
			write.POST("/stakes/:id/claim", stakeH.Claim)
			write.POST("/tournaments", tournamentH.Create)
			write.POST("/tournaments/:id/join", tournamentH.Join)
			write.POST("/tournaments/:id/start", tournamentH.Start)
			write.POST("/tournaments/:id/predictions", tournamentH.Predict)
			write.POST("/tournaments/:id/complete", tournamentH.Complete)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			authed.GET("/me", userH.Me)
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
// Outside production all origins are allowed; in production only the origins
// listed in CORS_ORIGINS.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.CORSOrigins))
	for _, o := range cfg.Server.CORSOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
