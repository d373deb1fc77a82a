package handler

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/locale"
	"github.com/pointlog/internal/observability"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// templateCard 是积分榜页面上的模板卡片
type templateCard struct {
	ID          uint
	Name        string
	Description template.HTML
	Challenges  []challengeRow
}

type challengeRow struct {
	ID        uint   `json:"id"`
	Challenge string `json:"challenge"`
	Points    int    `json:"points"`
}

type templateResponse struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Challenges  []challengeRow `json:"challenges"`
}

type activityResponse struct {
	ID           uint   `json:"id"`
	UserID       uint   `json:"user_id"`
	UserName     string `json:"user_name"`
	TemplateID   uint   `json:"template_id"`
	TemplateName string `json:"template_name"`
	Challenge    string `json:"challenge"`
	Points       int    `json:"points"`
	CreatedAt    string `json:"created_at"`
}

type createActivityRequest struct {
	UserID              uint `json:"user_id"`
	ChallengePointMapID uint `json:"challenge_point_map_id" binding:"required"`
}

// ShowBoard 渲染首页：模板与计分规则、排行榜和最近活动。
func (a *API) ShowBoard(c *gin.Context) {
	language := a.requestLocale(c).Language
	title := locale.T(language, "board.title")

	templates, err := a.board.ListTemplates()
	if err != nil {
		a.logger.Error("list templates failed", zap.Error(err))
		a.renderHTML(c, http.StatusInternalServerError, "board.html", gin.H{
			"title": title,
			"error": locale.Pick(language, "Failed to load the board", "加载积分榜失败"),
		})
		return
	}

	cards := make([]templateCard, 0, len(templates))
	for _, tmpl := range templates {
		description, err := renderMarkdown(tmpl.Description)
		if err != nil {
			a.logger.Warn("render template description failed", zap.Uint("template_id", tmpl.ID), zap.Error(err))
		}
		cards = append(cards, templateCard{
			ID:          tmpl.ID,
			Name:        tmpl.Name,
			Description: description,
			Challenges:  challengeRows(tmpl.ChallengePointMaps),
		})
	}

	activities, err := a.board.ListActivities(parsePositiveInt(c.Query("limit"), 0))
	if err != nil {
		a.logger.Error("list activities failed", zap.Error(err))
	}
	leaderboard, err := a.board.Leaderboard()
	if err != nil {
		a.logger.Error("leaderboard failed", zap.Error(err))
	}

	a.renderHTML(c, http.StatusOK, "board.html", gin.H{
		"title":       title,
		"templates":   cards,
		"activities":  activities,
		"leaderboard": leaderboard,
	})
}

// ListTemplates 返回全部模板及其计分规则。
func (a *API) ListTemplates(c *gin.Context) {
	templates, err := a.board.ListTemplates()
	if err != nil {
		a.respondServiceError(c, err, "failed to list templates")
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for _, tmpl := range templates {
		items = append(items, templateResponse{
			ID:          tmpl.ID,
			Name:        tmpl.Name,
			Description: tmpl.Description,
			Challenges:  challengeRows(tmpl.ChallengePointMaps),
		})
	}
	c.JSON(http.StatusOK, gin.H{"templates": items})
}

// ListActivities 返回最近的活动记录，支持 limit 参数。
func (a *API) ListActivities(c *gin.Context) {
	views, err := a.board.ListActivities(parsePositiveInt(c.Query("limit"), 0))
	if err != nil {
		a.respondServiceError(c, err, "failed to list activities")
		return
	}

	items := make([]activityResponse, 0, len(views))
	for _, view := range views {
		items = append(items, activityResponse(view))
	}
	c.JSON(http.StatusOK, gin.H{"activities": items})
}

// CreateActivity 记录一次挑战完成。普通用户只能为自己记录，管理员可以指定 user_id。
func (a *API) CreateActivity(c *gin.Context) {
	currentUser := a.currentUser(c)
	if currentUser == nil {
		respondError(c, http.StatusUnauthorized, "login required")
		return
	}

	var req createActivityRequest
	if !bindJSON(c, &req, "invalid activity payload") {
		return
	}

	userID := currentUser.ID
	if req.UserID != 0 && req.UserID != userID {
		if !currentUser.IsAdmin {
			respondError(c, http.StatusForbidden, "cannot record activity for another user")
			return
		}
		userID = req.UserID
	}

	view, err := a.board.RecordActivity(userID, req.ChallengePointMapID)
	if err != nil {
		a.respondServiceError(c, err, "failed to record activity")
		return
	}
	observability.RecordActivity()

	c.JSON(http.StatusCreated, gin.H{"activity": activityResponse(*view)})
}

// Leaderboard 以 JSON 返回排行榜。
func (a *API) Leaderboard(c *gin.Context) {
	entries, err := a.board.Leaderboard()
	if err != nil {
		a.respondServiceError(c, err, "failed to build leaderboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func challengeRows(maps []db.ChallengePointMap) []challengeRow {
	rows := make([]challengeRow, 0, len(maps))
	for _, item := range maps {
		rows = append(rows, challengeRow{ID: item.ID, Challenge: item.Challenge, Points: item.Points})
	}
	return rows
}

func renderMarkdown(content string) (template.HTML, error) {
	if content == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}
