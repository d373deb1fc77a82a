package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/locale"
	"github.com/pointlog/internal/pwa"
	"github.com/pointlog/internal/view"
	"go.uber.org/zap"
)

const manifestPath = "/resources/manifest.webmanifest"

// webManifest 是 /resources/manifest.webmanifest 的响应体
type webManifest struct {
	Name            string              `json:"name"`
	ShortName       string              `json:"short_name"`
	Description     string              `json:"description"`
	StartURL        string              `json:"start_url"`
	Scope           string              `json:"scope"`
	Display         string              `json:"display"`
	Lang            string              `json:"lang"`
	ThemeColor      string              `json:"theme_color"`
	BackgroundColor string              `json:"background_color"`
	Icons           []view.ManifestIcon `json:"icons"`
}

// GetSubscribeKey 以纯文本返回 VAPID 公钥（URL-safe base64，无填充）。
func (a *API) GetSubscribeKey(c *gin.Context) {
	if a.push == nil {
		c.String(http.StatusServiceUnavailable, "push notifications are disabled")
		return
	}
	key, err := a.push.PublicKey()
	if err != nil {
		a.logger.Error("vapid public key unavailable", zap.Error(err))
		c.String(statusForError(err), "push notifications are unavailable")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.String(http.StatusOK, key)
}

// PostSubscription 保存浏览器上报的推送订阅：新建返回 201，更新返回 200。
func (a *API) PostSubscription(c *gin.Context) {
	if a.push == nil {
		respondError(c, http.StatusServiceUnavailable, "push notifications are disabled")
		return
	}
	if !a.limiters.Allow(c.ClientIP()) {
		respondError(c, http.StatusTooManyRequests, "too many subscription requests")
		return
	}

	var envelope pwa.SubscriptionEnvelope
	if !bindJSON(c, &envelope, "invalid subscription payload") {
		return
	}
	if envelope.Type != pwa.PostSubscriptionType {
		respondError(c, http.StatusBadRequest, "unsupported message type")
		return
	}

	var owner *uint
	if user := a.currentUser(c); user != nil {
		owner = &user.ID
	}
	record, created, err := a.push.SaveSubscription(envelope.Subscription, owner)
	if err != nil {
		a.respondServiceError(c, err, "failed to save subscription")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"key": record.Key, "created": created})
}

// ShowManifest 输出 PWA manifest，文案跟随请求语言。
func (a *API) ShowManifest(c *gin.Context) {
	site := a.siteSettings(c)
	pref := a.requestLocale(c)

	icons := a.icons
	if icons == nil {
		icons = []view.ManifestIcon{}
	}

	manifest := webManifest{
		Name:            site.Name,
		ShortName:       shortName(site.Name),
		Description:     locale.T(pref.Language, "manifest.description"),
		StartURL:        "/",
		Scope:           "/",
		Display:         "standalone",
		Lang:            pref.HTMLLang,
		ThemeColor:      themeColor,
		BackgroundColor: "#F0FFF4",
		Icons:           icons,
	}

	c.Header("Content-Type", "application/manifest+json; charset=utf-8")
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, manifest)
}

// WorkerScript 从站点根路径提供 worker 脚本，作用域覆盖整站。
func WorkerScript(script []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Service-Worker-Allowed", "/")
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
	}
}

func shortName(name string) string {
	trimmed := strings.TrimSpace(name)
	runes := []rune(trimmed)
	if len(runes) <= 12 {
		return trimmed
	}
	return string(runes[:12])
}
