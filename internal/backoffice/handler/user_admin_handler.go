package handler

import (
	"net/http"

	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
)

// UserAdminHandler serves /admin/users endpoints.
type UserAdminHandler struct {
	statsSvc *service.StatsService
	tradeSvc *service.TradeService
	stakeSvc *service.StakeService
}

// NewUserAdminHandler creates a UserAdminHandler.
func NewUserAdminHandler(
	statsSvc *service.StatsService,
	tradeSvc *service.TradeService,
	stakeSvc *service.StakeService,
) *UserAdminHandler {
	return &UserAdminHandler{statsSvc: statsSvc, tradeSvc: tradeSvc, stakeSvc: stakeSvc}
}

// List godoc
// GET /admin/users?page=1&limit=50
func (h *UserAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	users, total := h.statsSvc.ListUsers(c.Request.Context(), limit, (page-1)*limit)
	respondList(c, users, total, page, limit)
}

// Detail godoc
// GET /admin/users/:address
func (h *UserAdminHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	user, err := h.statsSvc.GetUser(ctx, address)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"user":          user,
		"recent_trades": h.tradeSvc.ListUserTrades(ctx, address, 20),
		"recent_stakes": h.stakeSvc.ListUserStakes(ctx, address, 20),
	})
}
