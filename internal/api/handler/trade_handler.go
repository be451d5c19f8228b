package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TradeHandler serves trade execution and lookup.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// Execute godoc
// POST /api/trades
func (h *TradeHandler) Execute(c *gin.Context) {
	var body struct {
		MarketID      string          `json:"market_id" binding:"required"`
		TraderAddress string          `json:"trader_address"`
		Outcome       string          `json:"outcome"   binding:"required"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	trader, ok := callerAddress(c, body.TraderAddress)
	if !ok {
		return
	}

	receipt, err := h.tradeSvc.ExecuteTrade(c.Request.Context(), domain.TradeRequest{
		MarketID:      body.MarketID,
		TraderAddress: trader,
		Outcome:       body.Outcome,
		Amount:        body.Amount,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, receipt)
}

// GetByID godoc
// GET /api/trades/:id
func (h *TradeHandler) GetByID(c *gin.Context) {
	trade, err := h.tradeSvc.GetTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, trade)
}
