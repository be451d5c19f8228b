package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/predictarena/internal/notify"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/evetabi/predictarena/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	statsSvc   *service.StatsService
	dispatcher *notify.Dispatcher
	hub        *ws.Hub
}

// NewDashboardHandler creates a DashboardHandler. dispatcher and hub may be nil.
func NewDashboardHandler(statsSvc *service.StatsService, dispatcher *notify.Dispatcher, hub *ws.Hub) *DashboardHandler {
	return &DashboardHandler{statsSvc: statsSvc, dispatcher: dispatcher, hub: hub}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Risk summary ─────────────────────────────────────────────────────────
	risk := h.statsSvc.MarketRisk(ctx)
	levels := map[string]int{service.RiskGreen: 0, service.RiskYellow: 0, service.RiskRed: 0}
	pastEnd := 0
	for _, r := range risk {
		levels[r.RiskIndicator]++
		if r.PastEnd {
			pastEnd++
		}
	}

	// ── Event delivery ───────────────────────────────────────────────────────
	var events notify.Stats
	if h.dispatcher != nil {
		events = h.dispatcher.Stats()
	}

	// ── WS connections ────────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":        time.Now().UTC(),
		"platform":         h.statsSvc.PlatformStats(ctx),
		"risk_levels":      levels,
		"markets_past_end": pastEnd,
		"finance":          h.statsSvc.FinanceReport(ctx),
		"event_delivery":   events,
		"ws_connections":   wsConnections,
	})
}
