package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/pwa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowBoardInjectsShellData(t *testing.T) {
	srv := newTestServer(t, Options{SiteName: "PointLog", Assets: testAssets()})
	createChallenge(t, srv.db, "Daily", "**bold**<script>alert(1)</script>", "45m", 2)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "zh-CN")
	rec := srv.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "board.html", srv.html.last.name)

	data := srv.html.lastData(t)
	assert.Equal(t, "zh-CN", data["lang"])
	assert.Equal(t, "green", data["theme"])
	assert.Equal(t, manifestPath, data["manifestURL"])
	assets, ok := data["assetManifest"].(pwa.AssetManifest)
	require.True(t, ok, "expected asset manifest to be injected, got %#v", data["assetManifest"])
	assert.Equal(t, "v1", assets.Version)
	assert.Equal(t, "积分榜", data["title"])

	cards, ok := data["templates"].([]templateCard)
	require.True(t, ok)
	require.Len(t, cards, 1)
	description := string(cards[0].Description)
	assert.Contains(t, description, "<strong>bold</strong>")
	assert.NotContains(t, description, "<script>")
	require.Len(t, cards[0].Challenges, 1)
	assert.Equal(t, 2, cards[0].Challenges[0].Points)
}

func TestListTemplatesJSON(t *testing.T) {
	srv := newTestServer(t, Options{})
	createChallenge(t, srv.db, "Weekly", "", "default", 2)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Templates []templateResponse `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Templates, 1)
	require.NotEmpty(t, payload.Templates[0].Challenges)
	assert.Equal(t, "default", payload.Templates[0].Challenges[0].Challenge)
}

func TestCreateActivityRequiresLogin(t *testing.T) {
	srv := newTestServer(t, Options{})
	item := createChallenge(t, srv.db, "Daily", "", "run", 3)

	body := `{"challenge_point_map_id":` + jsonUint(item.ID) + `}`
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateActivityForSelfAndOthers(t *testing.T) {
	srv := newTestServer(t, Options{})
	item := createChallenge(t, srv.db, "Daily", "", "run", 3)
	member := createUser(t, srv.db, "Member", "member@example.com", "secret", false)
	other := createUser(t, srv.db, "Other", "other@example.com", "", false)

	cookies := srv.login(t, "member@example.com", "secret")

	body := `{"challenge_point_map_id":` + jsonUint(item.ID) + `}`
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body)), cookies...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Activity activityResponse `json:"activity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, member.ID, created.Activity.UserID)
	assert.Equal(t, 3, created.Activity.Points)

	body = `{"user_id":` + jsonUint(other.ID) + `,"challenge_point_map_id":` + jsonUint(item.ID) + `}`
	rec = srv.do(httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body)), cookies...)
	assert.Equal(t, http.StatusForbidden, rec.Code, "members cannot record for another user")

	body = `{"challenge_point_map_id":9999}`
	rec = srv.do(httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body)), cookies...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/activities?limit=10", nil))
	var listed struct {
		Activities []activityResponse `json:"activities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Activities, 1)
	assert.Equal(t, "Member", listed.Activities[0].UserName)

	var count int64
	require.NoError(t, srv.db.Model(&db.Activity{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateActivityWithDeletedSessionUser(t *testing.T) {
	srv := newTestServer(t, Options{})
	item := createChallenge(t, srv.db, "Daily", "", "run", 3)
	member := createUser(t, srv.db, "Member", "member@example.com", "secret", false)
	cookies := srv.login(t, "member@example.com", "secret")

	require.NoError(t, srv.db.Unscoped().Delete(&db.User{}, member.ID).Error)

	body := `{"challenge_point_map_id":` + jsonUint(item.ID) + `}`
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body)), cookies...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRecordsActivityForOthers(t *testing.T) {
	srv := newTestServer(t, Options{})
	item := createChallenge(t, srv.db, "Daily", "", "swim", 5)
	createUser(t, srv.db, "Admin", "admin@example.com", "root-pass", true)
	member := createUser(t, srv.db, "Member", "member@example.com", "", false)

	cookies := srv.login(t, "admin@example.com", "root-pass")
	body := `{"user_id":` + jsonUint(member.ID) + `,"challenge_point_map_id":` + jsonUint(item.ID) + `}`
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(body)), cookies...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	assert.Contains(t, rec.Body.String(), `"user_name":"Member"`)
	assert.Contains(t, rec.Body.String(), `"points":5`)
}

func jsonUint(value uint) string {
	data, _ := json.Marshal(value)
	return string(data)
}
