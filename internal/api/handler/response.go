package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evetabi/predictarena/internal/api/middleware"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"limit": limit,
		},
	})
}

// respondDomainError maps an engine error to its HTTP status and stable
// code. Only the domain message reaches the client; wrapping context and
// anything that is not a domain error stay in the logs.
func respondDomainError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		slog.Error("unhandled error", "path", c.FullPath(), "err", err)
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindInvalidArgument:
		status = http.StatusBadRequest
	case domain.KindUnauthorized:
		status = http.StatusForbidden
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindInvariantViolated:
		slog.Error("computation invariant violated", "path", c.FullPath(), "err", err)
		respondError(c, status, "ERR_"+de.Code, "internal error")
		return
	}
	respondError(c, status, "ERR_"+de.Code, de.Error())
}

// respondValidation reports a request body that failed binding.
func respondValidation(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
}

// ──────────────────────────────────────────────────────────────────────────────
// Request helpers
// ──────────────────────────────────────────────────────────────────────────────

// parseLimit reads ?limit=; 0 lets the service apply its default.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// callerAddress resolves who is acting. A token's address wins; a body
// address that disagrees with it is rejected with 403. Without a token the
// body address is trusted. ok is false when a response has been written.
func callerAddress(c *gin.Context, bodyAddress string) (addr string, ok bool) {
	authed := middleware.GetAddress(c)
	if authed == "" {
		return bodyAddress, true
	}
	if bodyAddress != "" && !strings.EqualFold(bodyAddress, authed) {
		respondDomainError(c, domain.ErrAddressMismatch)
		return "", false
	}
	return authed, true
}
