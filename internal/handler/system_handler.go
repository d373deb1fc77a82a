package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/db"
	"go.uber.org/zap"
)

// HealthCheck 提供给部署平台与监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

type systemSettingsRequest struct {
	SiteName string `json:"siteName"`
}

// GetSystemSettings 返回当前系统设置。
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		a.respondServiceError(c, err, "failed to load system settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": gin.H{"siteName": settings.SiteName}})
}

// UpdateSystemSettings 保存系统设置，目前只包含站点名称。
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload systemSettingsRequest
	if !bindJSON(c, &payload, "invalid settings payload") {
		return
	}
	name := strings.TrimSpace(payload.SiteName)
	if name == "" {
		respondError(c, http.StatusBadRequest, "siteName is required")
		return
	}

	if err := a.system.SetMany(map[string]string{db.SettingKeySiteName: name}); err != nil {
		a.respondServiceError(c, err, "failed to save system settings")
		return
	}
	a.logger.Info("system settings updated", zap.String("site_name", name))

	c.JSON(http.StatusOK, gin.H{
		"message":  "settings saved",
		"settings": gin.H{"siteName": name},
	})
}

// ShowOverview 汇总后台关心的数据量：用户、模板、计分规则、活动与推送订阅。
func (a *API) ShowOverview(c *gin.Context) {
	counts, err := a.board.Counts()
	if err != nil {
		a.respondServiceError(c, err, "failed to load overview")
		return
	}

	overview := gin.H{}
	for key, value := range counts {
		overview[key] = value
	}
	if a.push != nil {
		subscriptions, err := a.push.CountSubscriptions()
		if err != nil {
			a.respondServiceError(c, err, "failed to load overview")
			return
		}
		overview["subscriptions"] = subscriptions
	}

	c.JSON(http.StatusOK, gin.H{"overview": overview})
}
