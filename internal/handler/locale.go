package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/locale"
)

const (
	localeContextKey   = "__request_locale"
	languageCookieName = "pl_lang"
	languageCookieAge  = 365 * 24 * 60 * 60
)

// 反向代理写入的访客国家代码，按顺序取第一个非空值
var countryHeaders = []string{"CF-IPCountry", "X-Country-Code"}

// LocaleMiddleware 解析请求语言，并写入 Content-Language 与 Vary。
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	vary := strings.Join(append([]string{"Accept-Language", "Cookie"}, countryHeaders...), ", ")
	return func(c *gin.Context) {
		pref := a.requestLocale(c)
		c.Header("Content-Language", pref.HTMLLang)
		c.Writer.Header().Add("Vary", vary)
		c.Next()
	}
}

func (a *API) requestLocale(c *gin.Context) locale.Preference {
	if cached, exists := c.Get(localeContextKey); exists {
		if pref, ok := cached.(locale.Preference); ok {
			return pref
		}
	}
	language, persist := resolveLanguage(c)
	pref := locale.PreferenceForLanguage(language)
	if persist {
		a.persistLanguage(c, pref.Language)
	}
	c.Set(localeContextKey, pref)
	return pref
}

// resolveLanguage 依次检查 lang 参数、cookie、国家头、Accept-Language，最后回退英文。
// 只有显式的 lang 参数会写回 cookie。
func resolveLanguage(c *gin.Context) (string, bool) {
	if override := locale.NormalizeLanguage(c.Query("lang")); override != "" {
		return override, true
	}
	if value, err := c.Cookie(languageCookieName); err == nil {
		if cookie := locale.NormalizeLanguage(value); cookie != "" {
			return cookie, false
		}
	}
	for _, header := range countryHeaders {
		if country := strings.TrimSpace(c.GetHeader(header)); country != "" {
			return locale.LanguageFromCountryCode(country), false
		}
	}
	if fromHeader := locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language")); fromHeader != "" {
		return fromHeader, false
	}
	return locale.DefaultLanguage, false
}

func (a *API) persistLanguage(c *gin.Context, language string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     languageCookieName,
		Value:    language,
		Path:     "/",
		HttpOnly: true,
		Secure:   strings.HasPrefix(a.baseURL, "https://"),
		MaxAge:   languageCookieAge,
		SameSite: http.SameSiteLaxMode,
	})
}

func messagesFor(language string) map[string]string {
	return locale.Messages(language)
}

// buildLanguageSwitch 生成切换语言的链接，保留当前路径和其余查询参数。
func buildLanguageSwitch(c *gin.Context) map[string]string {
	links := make(map[string]string, 2)
	for _, language := range []string{locale.LanguageChinese, locale.LanguageEnglish} {
		target := *c.Request.URL
		query := target.Query()
		query.Set("lang", language)
		target.RawQuery = query.Encode()
		links[language] = target.RequestURI()
	}
	return links
}
