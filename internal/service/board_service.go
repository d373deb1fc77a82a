package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pointlog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在指定用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrChallengeNotFound 在指定计分规则不存在时返回
	ErrChallengeNotFound = errors.New("challenge point map not found")
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// BoardService 负责模板、计分规则与活动记录的读取和创建。
type BoardService struct {
	db *gorm.DB
}

// ActivityView 是活动流中的一行。
type ActivityView struct {
	ID           uint
	UserID       uint
	UserName     string
	TemplateID   uint
	TemplateName string
	Challenge    string
	Points       int
	CreatedAt    string
}

// LeaderboardEntry 汇总单个用户的得分。
type LeaderboardEntry struct {
	UserID     uint   `json:"user_id"`
	UserName   string `json:"user_name"`
	Points     int    `json:"points"`
	Activities int    `json:"activities"`
}

// NewBoardService 构造 BoardService
func NewBoardService(gdb *gorm.DB) *BoardService {
	return &BoardService{db: gdb}
}

// ListTemplates 返回全部模板及其计分规则，按创建顺序排列
func (s *BoardService) ListTemplates() ([]db.Template, error) {
	var templates []db.Template
	if err := s.db.
		Preload("ChallengePointMaps", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id ASC")
		}).
		Order("id ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// ListActivities 返回最近的活动记录，limit<=0 时使用默认值
func (s *BoardService) ListActivities(limit int) ([]ActivityView, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	var activities []db.Activity
	if err := s.db.
		Preload("User").
		Preload("ChallengePointMap.Template").
		Order("id DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	views := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, toActivityView(activity))
	}
	return views, nil
}

// RecordActivity 为用户记录一次挑战完成
func (s *BoardService) RecordActivity(userID, challengePointMapID uint) (*ActivityView, error) {
	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var pointMap db.ChallengePointMap
	if err := s.db.Preload("Template").First(&pointMap, challengePointMapID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("find challenge point map: %w", err)
	}

	activity := db.Activity{UserID: user.ID, ChallengePointMapID: pointMap.ID}
	if err := s.db.Create(&activity).Error; err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	activity.User = user
	activity.ChallengePointMap = pointMap

	view := toActivityView(activity)
	return &view, nil
}

// Leaderboard 按总分降序汇总用户得分，同分按用户 ID 升序
func (s *BoardService) Leaderboard() ([]LeaderboardEntry, error) {
	var rows []LeaderboardEntry
	if err := s.db.Model(&db.Activity{}).
		Select("users.id AS user_id, users.name AS user_name, SUM(challenge_point_maps.points) AS points, COUNT(activities.id) AS activities").
		Joins("JOIN users ON users.id = activities.user_id AND users.deleted_at IS NULL").
		Joins("JOIN challenge_point_maps ON challenge_point_maps.id = activities.challenge_point_map_id").
		Group("users.id, users.name").
		Order("points DESC, users.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return rows, nil
}

// FindUserByEmail 根据邮箱查找用户，大小写不敏感
func (s *BoardService) FindUserByEmail(email string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// FindUserByID 根据 ID 查找用户，已删除的用户返回 ErrUserNotFound
func (s *BoardService) FindUserByID(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Counts 返回各实体的记录数，用于后台面板
func (s *BoardService) Counts() (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for name, model := range map[string]interface{}{
		"users":      &db.User{},
		"templates":  &db.Template{},
		"challenges": &db.ChallengePointMap{},
		"activities": &db.Activity{},
	} {
		var count int64
		if err := s.db.Model(model).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = count
	}
	return counts, nil
}

func toActivityView(activity db.Activity) ActivityView {
	return ActivityView{
		ID:           activity.ID,
		UserID:       activity.UserID,
		UserName:     activity.User.Name,
		TemplateID:   activity.ChallengePointMap.TemplateID,
		TemplateName: activity.ChallengePointMap.Template.Name,
		Challenge:    activity.ChallengePointMap.Challenge,
		Points:       activity.ChallengePointMap.Points,
		CreatedAt:    activity.CreatedAt.Format("2006-01-02 15:04"),
	}
}
