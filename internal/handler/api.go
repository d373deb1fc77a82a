package handler

import (
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/pwa"
	"github.com/pointlog/internal/service"
	"github.com/pointlog/internal/view"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// 主题色方案，对应 primary = green
const (
	themeName  = "green"
	themeColor = "#38A169"
)

// Options 汇总构造 API 所需的站点级参数。
type Options struct {
	SiteName string
	BaseURL  string
	// Icons 为 manifest 中声明的图标列表
	Icons []view.ManifestIcon
	// Assets 会注入到页面供 worker 预缓存
	Assets pwa.AssetManifest
	// SubscribeRateLimit 为单个 IP 每分钟允许的订阅上报次数，0 表示不限制
	SubscribeRateLimit int
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	board    *service.BoardService
	push     *service.PushService
	system   *service.SystemSettingService
	logger   *zap.Logger
	icons    []view.ManifestIcon
	assets   pwa.AssetManifest
	baseURL  string
	limiters *ipLimiter
}

type siteViewModel struct {
	Name string
}

const siteSettingsContextKey = "__site_settings"

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, push *service.PushService, logger *zap.Logger, opts Options) *API {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &API{
		db:       db,
		board:    service.NewBoardService(db),
		push:     push,
		system:   service.NewSystemSettingService(db, opts.SiteName),
		logger:   logger,
		icons:    opts.Icons,
		assets:   opts.Assets,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		limiters: newIPLimiter(opts.SubscribeRateLimit),
	}
}

func (a *API) siteSettings(c *gin.Context) siteViewModel {
	if cached, exists := c.Get(siteSettingsContextKey); exists {
		if vm, ok := cached.(siteViewModel); ok {
			return vm
		}
	}

	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
	}

	vm := siteViewModel{Name: strings.TrimSpace(settings.SiteName)}
	if vm.Name == "" {
		vm.Name = service.DefaultSiteName
	}

	c.Set(siteSettingsContextKey, vm)
	return vm
}

// renderHTML 为每个页面注入外壳所需的数据：语言、主题、manifest 链接和资源清单。
func (a *API) renderHTML(c *gin.Context, status int, name string, data gin.H) {
	site := a.siteSettings(c)
	pref := a.requestLocale(c)

	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	defaults := gin.H{
		"siteName":       site.Name,
		"lang":           pref.HTMLLang,
		"language":       pref.Language,
		"theme":          themeName,
		"themeColor":     themeColor,
		"manifestURL":    manifestPath,
		"assetManifest":  a.assets,
		"messages":       messagesFor(pref.Language),
		"languageSwitch": buildLanguageSwitch(c),
		"isAdmin":        a.isAdmin(c),
	}
	for key, value := range defaults {
		if _, exists := payload[key]; !exists {
			payload[key] = value
		}
	}

	c.HTML(status, name, payload)
}

// TemplateFuncs 返回页面模板使用的辅助函数。
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// limiterIdleTTL 之后仍未出现的 IP 会被清理，令牌桶在一分钟内即可回满
const limiterIdleTTL = 5 * time.Minute

// ipLimiter 为每个客户端 IP 维护一个令牌桶，空闲条目在访问时顺带清理
type ipLimiter struct {
	mu        sync.Mutex
	perMin    int
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{perMin: perMinute, now: time.Now, entries: make(map[string]*limiterEntry)}
}

func (l *ipLimiter) Allow(ip string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	entry, ok := l.entries[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(float64(l.perMin)/60), l.perMin)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) >= limiterIdleTTL {
			delete(l.entries, ip)
		}
	}
	l.lastSweep = now
}
