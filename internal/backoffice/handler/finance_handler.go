package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
)

// FinanceHandler serves /admin/finance endpoints.
type FinanceHandler struct {
	statsSvc *service.StatsService
}

// NewFinanceHandler creates a FinanceHandler.
func NewFinanceHandler(statsSvc *service.StatsService) *FinanceHandler {
	return &FinanceHandler{statsSvc: statsSvc}
}

// Report godoc
// GET /admin/finance/report
//
// Staked, settled, claimed and unclaimed reward totals plus trade volume
// and tournament prize allocation.
func (h *FinanceHandler) Report(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.statsSvc.FinanceReport(c.Request.Context()))
}
