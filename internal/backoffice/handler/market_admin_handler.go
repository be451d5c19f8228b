package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
)

// MarketAdminHandler serves /admin/markets and /admin/tournaments.
// Resolution stays with market creators; admins only observe.
type MarketAdminHandler struct {
	marketSvc     *service.MarketService
	stakeSvc      *service.StakeService
	tournamentSvc *service.TournamentService
}

// NewMarketAdminHandler creates a MarketAdminHandler.
func NewMarketAdminHandler(
	marketSvc *service.MarketService,
	stakeSvc *service.StakeService,
	tournamentSvc *service.TournamentService,
) *MarketAdminHandler {
	return &MarketAdminHandler{marketSvc: marketSvc, stakeSvc: stakeSvc, tournamentSvc: tournamentSvc}
}

// List godoc
// GET /admin/markets?status=active&limit=50
func (h *MarketAdminHandler) List(c *gin.Context) {
	_, limit := adminPagination(c)
	markets, err := h.marketSvc.ListMarkets(c.Request.Context(), repository.MarketFilter{
		Status:   domain.MarketStatus(c.Query("status")),
		Category: c.Query("category"),
		Creator:  c.Query("creator"),
		Limit:    limit,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	respondList(c, markets, len(markets), 1, limit)
}

// Detail godoc
// GET /admin/markets/:id
func (h *MarketAdminHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	market, err := h.marketSvc.GetMarket(ctx, id)
	if err != nil {
		respondLookupError(c, err)
		return
	}
	trades, err := h.marketSvc.ListMarketTrades(ctx, id, 50)
	if err != nil {
		respondLookupError(c, err)
		return
	}
	insights, err := h.stakeSvc.MarketInsights(ctx, id)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"market":        market,
		"recent_trades": trades,
		"insights":      insights,
		"price_sum":     market.PriceSum(),
	})
}

// Tournaments godoc
// GET /admin/tournaments?status=pending&limit=50
func (h *MarketAdminHandler) Tournaments(c *gin.Context) {
	_, limit := adminPagination(c)
	list, err := h.tournamentSvc.ListTournaments(c.Request.Context(), repository.TournamentFilter{
		Status: domain.TournamentStatus(c.Query("status")),
		Limit:  limit,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	respondList(c, list, len(list), 1, limit)
}
