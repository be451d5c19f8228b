package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard admin response helpers (mirrors internal/api/handler/response.go)
// ──────────────────────────────────────────────────────────────────────────────

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondLookupError turns a failed lookup into 404, anything else into 500.
func respondLookupError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindNotFound {
		respondError(c, http.StatusNotFound, "ERR_"+de.Code, de.Error())
		return
	}
	slog.Error("backoffice lookup failed", "path", c.FullPath(), "err", err)
	respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal error")
}

// adminPagination reads page/limit query params with sane defaults for admin views.
func adminPagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return
}
