package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parsePositiveInt(value string, fallback int) int {
	num, err := strconv.Atoi(value)
	if err != nil || num <= 0 {
		return fallback
	}
	return num
}

// statusForError 把服务层的哨兵错误映射为 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrChallengeNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidSubscription):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrVAPIDKeysMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError 记录内部错误并返回 JSON，客户端错误直接透出原因
func (a *API) respondServiceError(c *gin.Context, err error, message string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
		a.logger.Error(message, zap.Error(err))
		respondError(c, status, message)
		return
	}
	respondError(c, status, err.Error())
}
