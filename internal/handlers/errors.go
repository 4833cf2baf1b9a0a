package handlers

import (
	"net/http"

	"heistctf/internal/apperr"
	"heistctf/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps business failure kinds onto HTTP statuses. Anything
// without a kind is a storage fault and becomes a 500 with a generic body.
func respondError(c *gin.Context, err error, logMsg string, fields ...zap.Field) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		logger.Log.Error(logMsg, append(fields, zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusBadRequest
	switch kind {
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) (int, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
