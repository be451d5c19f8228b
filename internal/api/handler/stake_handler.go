package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StakeHandler serves insight stakes and reward claims.
type StakeHandler struct {
	stakeSvc      *service.StakeService
	settlementSvc *service.SettlementService
}

// NewStakeHandler creates a StakeHandler.
func NewStakeHandler(stakeSvc *service.StakeService, settlementSvc *service.SettlementService) *StakeHandler {
	return &StakeHandler{stakeSvc: stakeSvc, settlementSvc: settlementSvc}
}

// Create godoc
// POST /api/stakes
func (h *StakeHandler) Create(c *gin.Context) {
	var body struct {
		MarketID      string          `json:"market_id"  binding:"required"`
		StakerAddress string          `json:"staker_address"`
		Outcome       string          `json:"outcome"    binding:"required"`
		Amount        decimal.Decimal `json:"amount"`
		Reasoning     string          `json:"reasoning"`
		Confidence    float64         `json:"confidence"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	staker, ok := callerAddress(c, body.StakerAddress)
	if !ok {
		return
	}

	stake, err := h.stakeSvc.CreateStake(c.Request.Context(), domain.StakeRequest{
		MarketID:      body.MarketID,
		StakerAddress: staker,
		Outcome:       body.Outcome,
		Amount:        body.Amount,
		Reasoning:     body.Reasoning,
		Confidence:    body.Confidence,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, stake)
}

// GetByID godoc
// GET /api/stakes/:id
func (h *StakeHandler) GetByID(c *gin.Context) {
	stake, err := h.stakeSvc.GetStake(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stake)
}

// Claim godoc
// POST /api/stakes/:id/claim
func (h *StakeHandler) Claim(c *gin.Context) {
	var body struct {
		ClaimerAddress string `json:"claimer_address"`
	}
	// An empty body is fine when the caller is identified by token.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidation(c, err)
			return
		}
	}
	claimer, ok := callerAddress(c, body.ClaimerAddress)
	if !ok {
		return
	}

	receipt, err := h.settlementSvc.ClaimStakeReward(c.Request.Context(), c.Param("id"), claimer)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, receipt)
}
