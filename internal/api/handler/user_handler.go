package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/api/middleware"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
)

// UserHandler handles token issuance, user profiles and platform summaries.
type UserHandler struct {
	authSvc  *service.AuthService
	statsSvc *service.StatsService
	tradeSvc *service.TradeService
	stakeSvc *service.StakeService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(
	authSvc *service.AuthService,
	statsSvc *service.StatsService,
	tradeSvc *service.TradeService,
	stakeSvc *service.StakeService,
) *UserHandler {
	return &UserHandler{authSvc: authSvc, statsSvc: statsSvc, tradeSvc: tradeSvc, stakeSvc: stakeSvc}
}

// Challenge godoc
// POST /api/auth/challenge
func (h *UserHandler) Challenge(c *gin.Context) {
	var body struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}

	resp, err := h.authSvc.Challenge(body.Address)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}

// IssueToken godoc
// POST /api/auth/token
func (h *UserHandler) IssueToken(c *gin.Context) {
	var body struct {
		Address     string `json:"address" binding:"required"`
		Signature   string `json:"signature" binding:"required"`
		AdminSecret string `json:"admin_secret"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}

	resp, err := h.authSvc.IssueToken(service.TokenRequest{
		Address:     body.Address,
		Signature:   body.Signature,
		AdminSecret: body.AdminSecret,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}

// Me godoc
// GET /api/me  (JWT required)
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.statsSvc.GetUser(c.Request.Context(), middleware.GetAddress(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"user": user,
		"role": middleware.GetRole(c),
	})
}

// GetByAddress godoc
// GET /api/users/:address
func (h *UserHandler) GetByAddress(c *gin.Context) {
	user, err := h.statsSvc.GetUser(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

// Trades godoc
// GET /api/users/:address/trades?limit=50
func (h *UserHandler) Trades(c *gin.Context) {
	limit := parseLimit(c)
	trades := h.tradeSvc.ListUserTrades(c.Request.Context(), c.Param("address"), limit)
	respondList(c, trades, len(trades), limit)
}

// Stakes godoc
// GET /api/users/:address/stakes?limit=50
func (h *UserHandler) Stakes(c *gin.Context) {
	limit := parseLimit(c)
	stakes := h.stakeSvc.ListUserStakes(c.Request.Context(), c.Param("address"), limit)
	respondList(c, stakes, len(stakes), limit)
}

// Leaderboard godoc
// GET /api/leaderboard?limit=100
func (h *UserHandler) Leaderboard(c *gin.Context) {
	limit := parseLimit(c)
	entries := h.statsSvc.Leaderboard(c.Request.Context(), limit)
	respondList(c, entries, len(entries), limit)
}

// Stats godoc
// GET /api/stats
func (h *UserHandler) Stats(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.statsSvc.PlatformStats(c.Request.Context()))
}
