package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MarketHandler serves market creation, queries and resolution.
type MarketHandler struct {
	marketSvc     *service.MarketService
	stakeSvc      *service.StakeService
	settlementSvc *service.SettlementService
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(
	marketSvc *service.MarketService,
	stakeSvc *service.StakeService,
	settlementSvc *service.SettlementService,
) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc, stakeSvc: stakeSvc, settlementSvc: settlementSvc}
}

// Create godoc
// POST /api/markets
func (h *MarketHandler) Create(c *gin.Context) {
	var body struct {
		Question         string          `json:"question"          binding:"required,min=10,max=500"`
		Description      string          `json:"description"       binding:"required,min=20,max=2000"`
		CreatorAddress   string          `json:"creator_address"`
		Category         string          `json:"category"          binding:"required,min=2,max=100"`
		Outcomes         []string        `json:"outcomes"          binding:"required,min=2,max=10"`
		EndTime          time.Time       `json:"end_time"`
		ResolutionSource string          `json:"resolution_source" binding:"required,min=5,max=500"`
		InitialLiquidity decimal.Decimal `json:"initial_liquidity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	creator, ok := callerAddress(c, body.CreatorAddress)
	if !ok {
		return
	}

	market, err := h.marketSvc.CreateMarket(c.Request.Context(), domain.CreateMarketParams{
		Question:         body.Question,
		Description:      body.Description,
		CreatorAddress:   creator,
		Category:         body.Category,
		Outcomes:         body.Outcomes,
		EndTime:          body.EndTime,
		ResolutionSource: body.ResolutionSource,
		InitialLiquidity: body.InitialLiquidity,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, market)
}

// List godoc
// GET /api/markets?status=active&category=sports&creator=0x..&limit=50
func (h *MarketHandler) List(c *gin.Context) {
	limit := parseLimit(c)
	markets, err := h.marketSvc.ListMarkets(c.Request.Context(), repository.MarketFilter{
		Status:   domain.MarketStatus(c.Query("status")),
		Category: c.Query("category"),
		Creator:  c.Query("creator"),
		Limit:    limit,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, markets, len(markets), limit)
}

// GetByID godoc
// GET /api/markets/:id
func (h *MarketHandler) GetByID(c *gin.Context) {
	market, err := h.marketSvc.GetMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, market)
}

// Trades godoc
// GET /api/markets/:id/trades?limit=50
func (h *MarketHandler) Trades(c *gin.Context) {
	limit := parseLimit(c)
	trades, err := h.marketSvc.ListMarketTrades(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, trades, len(trades), limit)
}

// Stakes godoc
// GET /api/markets/:id/stakes?limit=50
func (h *MarketHandler) Stakes(c *gin.Context) {
	limit := parseLimit(c)
	stakes, err := h.stakeSvc.ListMarketStakes(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, stakes, len(stakes), limit)
}

// Insights godoc
// GET /api/markets/:id/insights
func (h *MarketHandler) Insights(c *gin.Context) {
	insights, err := h.stakeSvc.MarketInsights(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, insights)
}

// Resolve godoc
// POST /api/markets/:id/resolve
func (h *MarketHandler) Resolve(c *gin.Context) {
	var body struct {
		WinningOutcome  string `json:"winning_outcome"  binding:"required"`
		ResolverAddress string `json:"resolver_address"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	resolver, ok := callerAddress(c, body.ResolverAddress)
	if !ok {
		return
	}

	market, err := h.settlementSvc.ResolveMarket(c.Request.Context(), c.Param("id"), resolver, body.WinningOutcome)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, market)
}
