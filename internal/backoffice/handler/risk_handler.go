package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
)

// RiskHandler serves /admin/risk endpoints.
type RiskHandler struct {
	statsSvc *service.StatsService
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(statsSvc *service.StatsService) *RiskHandler {
	return &RiskHandler{statsSvc: statsSvc}
}

// Live godoc
// GET /admin/risk/live
//
// Every active market with the share of volume held by its leading outcome,
// most concentrated first.
func (h *RiskHandler) Live(c *gin.Context) {
	rows := h.statsSvc.MarketRisk(c.Request.Context())
	respondList(c, rows, len(rows), 1, len(rows))
}

// Alerts godoc
// GET /admin/risk/alerts
//
// Markets that are RED or have passed their end time without resolution.
func (h *RiskHandler) Alerts(c *gin.Context) {
	type alert struct {
		service.MarketRisk
		Reasons []string `json:"reasons"`
	}

	alerts := []alert{}
	for _, r := range h.statsSvc.MarketRisk(c.Request.Context()) {
		var reasons []string
		if r.RiskIndicator == service.RiskRed {
			reasons = append(reasons, "one-sided volume")
		}
		if r.PastEnd {
			reasons = append(reasons, "past end time, unresolved")
		}
		if len(reasons) > 0 {
			alerts = append(alerts, alert{MarketRisk: r, Reasons: reasons})
		}
	}
	respondSuccess(c, http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}
