package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLanguageOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name        string
		target      string
		cookie      string
		headers     map[string]string
		want        string
		wantPersist bool
	}{
		{name: "query wins", target: "/?lang=zh", cookie: "en", headers: map[string]string{"Accept-Language": "en"}, want: locale.LanguageChinese, wantPersist: true},
		{name: "cookie", target: "/", cookie: "zh", headers: map[string]string{"CF-IPCountry": "US"}, want: locale.LanguageChinese},
		{name: "country header", target: "/", headers: map[string]string{"CF-IPCountry": "CN", "Accept-Language": "en-US"}, want: locale.LanguageChinese},
		{name: "fallback country header", target: "/", headers: map[string]string{"X-Country-Code": "tw", "Accept-Language": "en-US"}, want: locale.LanguageChinese},
		{name: "accept language", target: "/", headers: map[string]string{"Accept-Language": "zh-CN,zh;q=0.9"}, want: locale.LanguageChinese},
		{name: "unsupported accept language", target: "/", headers: map[string]string{"Accept-Language": "fr-FR"}, want: locale.LanguageEnglish},
		{name: "default english", target: "/", want: locale.LanguageEnglish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: languageCookieName, Value: tc.cookie})
			}
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = req

			got, persist := resolveLanguage(c)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantPersist, persist)
		})
	}
}

func TestLocaleMiddlewareSetsHeadersAndCookie(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/templates?lang=zh", nil))
	assert.Equal(t, "zh-CN", rec.Header().Get("Content-Language"))
	vary := rec.Header().Get("Vary")
	assert.Contains(t, vary, "Accept-Language")
	assert.Contains(t, vary, "Cookie")
	assert.Contains(t, vary, "CF-IPCountry")

	var persisted *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == languageCookieName {
			persisted = c
		}
	}
	require.NotNil(t, persisted, "expected language cookie to be persisted")
	assert.Equal(t, locale.LanguageChinese, persisted.Value)
	assert.False(t, persisted.Secure, "plain http deployments should not mark the cookie secure")

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	assert.Equal(t, "en-US", rec.Header().Get("Content-Language"))
}

func TestBuildLanguageSwitchKeepsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=5&lang=en", nil)

	links := buildLanguageSwitch(c)
	assert.Equal(t, "/?lang=zh&limit=5", links["zh"])
	assert.Equal(t, "/?lang=en&limit=5", links["en"])
}
