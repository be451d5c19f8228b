package backoffice

import (
	"net/http"
	"strings"

	"github.com/evetabi/predictarena/internal/api/middleware"
	"github.com/evetabi/predictarena/internal/backoffice/handler"
	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/notify"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/evetabi/predictarena/internal/ws"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc       *service.AuthService
	MarketSvc     *service.MarketService
	TradeSvc      *service.TradeService
	StakeSvc      *service.StakeService
	TournamentSvc *service.TournamentService
	StatsSvc      *service.StatsService
	Dispatcher    *notify.Dispatcher
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine served on the backoffice port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.StatsSvc, deps.Dispatcher, deps.Hub)
	marketH := handler.NewMarketAdminHandler(deps.MarketSvc, deps.StakeSvc, deps.TournamentSvc)
	userH := handler.NewUserAdminHandler(deps.StatsSvc, deps.TradeSvc, deps.StakeSvc)
	riskH := handler.NewRiskHandler(deps.StatsSvc)
	financeH := handler.NewFinanceHandler(deps.StatsSvc)

	admin := r.Group("/admin")
	admin.Use(middleware.JWTMiddleware(deps.AuthSvc), middleware.AdminMiddleware())
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Markets & tournaments
		m := admin.Group("/markets")
		{
			m.GET("", marketH.List)
			m.GET("/:id", marketH.Detail)
		}
		admin.GET("/tournaments", marketH.Tournaments)

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:address", userH.Detail)
		}

		// Risk
		risk := admin.Group("/risk")
		{
			risk.GET("/live", riskH.Live)
			risk.GET("/alerts", riskH.Alerts)
		}

		// Finance
		admin.GET("/finance/report", financeH.Report)
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not whitelisted",
				"code":    "ERR_IP_DENIED",
			})
			return
		}
		c.Next()
	}
}
