package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/pwa"
	"github.com/pointlog/internal/service"
	"github.com/pointlog/internal/view"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubHTMLRender struct {
	last *stubHTMLInstance
}

type stubHTMLInstance struct {
	name string
	data interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	instance := &stubHTMLInstance{name: name, data: data}
	r.last = instance
	return instance
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

func (r *stubHTMLRender) lastData(t *testing.T) gin.H {
	t.Helper()
	require.NotNil(t, r.last, "expected a template to be rendered")
	data, ok := r.last.data.(gin.H)
	require.True(t, ok, "unexpected template data type %T", r.last.data)
	return data
}

var handlerDBSeq atomic.Int64

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handler-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), handlerDBSeq.Add(1))
	gdb, err := db.Open(dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	t.Cleanup(func() {
		db.Close(gdb)
	})
	return gdb
}

type testServer struct {
	api    *API
	db     *gorm.DB
	router *gin.Engine
	html   *stubHTMLRender
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := setupHandlerTestDB(t)
	settings := service.NewSystemSettingService(gdb, opts.SiteName)
	push := service.NewPushService(gdb, settings, nil, "ops@example.com")
	_, err := push.EnsureVAPIDKeys(service.VAPIDKeys{})
	require.NoError(t, err)

	api := NewAPI(gdb, push, nil, opts)
	html := &stubHTMLRender{}

	router := gin.New()
	router.HTMLRender = html
	router.Use(sessions.Sessions("pointlog_session", cookie.NewStore([]byte("test-secret"))))
	router.Use(api.LocaleMiddleware())
	router.GET("/", api.ShowBoard)
	router.GET("/resources/subscribe", api.GetSubscribeKey)
	router.POST("/resources/subscribe", api.PostSubscription)
	router.GET(manifestPath, api.ShowManifest)
	router.GET("/admin/login", api.ShowLoginPage)
	router.POST("/admin/login", api.Login)
	router.GET("/admin/logout", api.Logout)
	router.GET("/api/templates", api.ListTemplates)
	router.GET("/api/activities", api.ListActivities)
	router.POST("/api/activities", api.CreateActivity)
	router.GET("/api/leaderboard", api.Leaderboard)
	router.POST("/admin/api/notify", api.AdminAPIRequired(), api.Notify)

	return &testServer{api: api, db: gdb, router: router, html: html}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)
	require.Equal(t, http.StatusFound, rec.Code, "expected login redirect")
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie after login")
	return cookies
}

func createUser(t *testing.T, gdb *gorm.DB, name, email, password string, admin bool) db.User {
	t.Helper()
	hash, err := db.HashPassword(password)
	require.NoError(t, err)
	user := db.User{Name: name, Email: email, PasswordHash: hash, IsAdmin: admin}
	require.NoError(t, gdb.Create(&user).Error)
	return user
}

func createChallenge(t *testing.T, gdb *gorm.DB, templateName, description, challenge string, points int) db.ChallengePointMap {
	t.Helper()
	tmpl := db.Template{Name: templateName, Description: description}
	require.NoError(t, gdb.Create(&tmpl).Error)
	item := db.ChallengePointMap{Challenge: challenge, Points: points, TemplateID: tmpl.ID}
	require.NoError(t, gdb.Create(&item).Error)
	return item
}

func testIcons() []view.ManifestIcon {
	return []view.ManifestIcon{{Src: "/static/icons/icon-192.png", Sizes: "192x192", Type: "image/png"}}
}

func testAssets() pwa.AssetManifest {
	return pwa.AssetManifest{Version: "v1", Assets: []string{"/static/js/entry.client.js"}}
}
