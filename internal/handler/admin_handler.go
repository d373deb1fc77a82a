package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/locale"
	"github.com/pointlog/internal/service"
	"go.uber.org/zap"
)

const (
	sessionKeyUserID      = "user_id"
	currentUserContextKey = "__current_user"

	broadcastTimeout = 30 * time.Second
)

type notifyRequest struct {
	Title string `json:"title"`
	Body  string `json:"body" binding:"required"`
	URL   string `json:"url"`
}

// ShowLoginPage 渲染登录页面
func (a *API) ShowLoginPage(c *gin.Context) {
	if a.isAdmin(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	language := a.requestLocale(c).Language
	a.renderHTML(c, http.StatusOK, "login.html", gin.H{
		"title": locale.T(language, "login.title"),
	})
}

// Login 校验邮箱与密码并写入会话
func (a *API) Login(c *gin.Context) {
	language := a.requestLocale(c).Language
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	fail := func(status int, key string) {
		a.renderHTML(c, status, "login.html", gin.H{
			"title": locale.T(language, "login.title"),
			"error": locale.T(language, key),
			"email": email,
		})
	}

	user, err := a.board.FindUserByEmail(email)
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			a.logger.Error("login lookup failed", zap.Error(err))
		}
		fail(http.StatusUnauthorized, "login.invalid")
		return
	}
	if !user.CheckPassword(password) {
		fail(http.StatusUnauthorized, "login.invalid")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		a.logger.Error("save session failed", zap.Error(err))
		fail(http.StatusInternalServerError, "login.session")
		return
	}

	a.logger.Info("user logged in", zap.Uint("user_id", user.ID), zap.Bool("admin", user.IsAdmin))
	c.Redirect(http.StatusFound, "/")
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.logger.Warn("clear session failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/admin/login")
}

// Notify 向全部订阅群发一条推送
func (a *API) Notify(c *gin.Context) {
	if a.push == nil {
		respondError(c, http.StatusServiceUnavailable, "push notifications are disabled")
		return
	}

	var req notifyRequest
	if !bindJSON(c, &req, "invalid notification payload") {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = locale.T(a.requestLocale(c).Language, "notification.newRecord")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), broadcastTimeout)
	defer cancel()

	result, err := a.push.Broadcast(ctx, service.Notification{
		Title: title,
		Body:  strings.TrimSpace(req.Body),
		URL:   a.absoluteURL(strings.TrimSpace(req.URL)),
	})
	if err != nil {
		a.respondServiceError(c, err, "failed to send notifications")
		return
	}

	a.logger.Info("broadcast finished",
		zap.Int("sent", result.Sent),
		zap.Int("removed", result.Removed),
		zap.Int("failed", result.Failed),
	)
	c.JSON(http.StatusOK, result)
}

// AdminAPIRequired 是接口路由的认证中间件，返回 JSON 错误而非跳转。
// 权限以数据库中的用户为准，会话里的用户已被删除时清空会话。
func (a *API) AdminAPIRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := a.currentUser(c)
		if user == nil {
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}
		if !user.IsAdmin {
			respondError(c, http.StatusForbidden, "admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser 读取会话对应的用户，同一请求内只查询一次。
func (a *API) currentUser(c *gin.Context) *db.User {
	if cached, exists := c.Get(currentUserContextKey); exists {
		user, _ := cached.(*db.User)
		return user
	}

	var user *db.User
	if id := sessionUserID(c); id != nil {
		found, err := a.board.FindUserByID(*id)
		switch {
		case err == nil:
			user = found
		case errors.Is(err, service.ErrUserNotFound):
			a.logger.Info("session user no longer exists", zap.Uint("user_id", *id))
			session := sessions.Default(c)
			session.Clear()
			if err := session.Save(); err != nil {
				a.logger.Warn("clear session failed", zap.Error(err))
			}
		default:
			a.logger.Error("load session user failed", zap.Error(err))
		}
	}

	c.Set(currentUserContextKey, user)
	return user
}

func (a *API) isAdmin(c *gin.Context) bool {
	user := a.currentUser(c)
	return user != nil && user.IsAdmin
}

func sessionUserID(c *gin.Context) *uint {
	session := sessions.Default(c)
	switch value := session.Get(sessionKeyUserID).(type) {
	case uint:
		return &value
	case int:
		if value > 0 {
			id := uint(value)
			return &id
		}
	}
	return nil
}

// absoluteURL 把站内路径补全为带站点地址的链接，已是完整地址的原样返回。
func (a *API) absoluteURL(target string) string {
	if target == "" {
		target = "/"
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || a.baseURL == "" {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return a.baseURL + target
}
