// Package seed clears and repopulates the relational schema with fixture data.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/pointlog/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 控制播种行为。
type Options struct {
	// ResetAll 额外清空 Activity/ChallengePointMap/Template。
	// 默认只清空 User，重复播种会产生重复的模板与计分规则。
	ResetAll bool
	// AdminPassword 非空时为管理员 fixture 写入 bcrypt 哈希，便于后台登录。
	AdminPassword string
}

// Result 汇总一次播种创建的记录，按创建顺序排列。
type Result struct {
	Templates          []db.Template
	ChallengePointMaps []db.ChallengePointMap
	Users              []db.User
	Activities         []db.Activity
}

// Loader 按 Template → ChallengePointMap → User → Activity 的顺序串行写入数据。
type Loader struct {
	db       *gorm.DB
	logger   *zap.Logger
	fixtures Fixtures
	opts     Options
}

// NewLoader 构造 Loader，logger 为空时不输出日志。
func NewLoader(gdb *gorm.DB, logger *zap.Logger, fixtures Fixtures, opts Options) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: gdb, logger: logger, fixtures: fixtures, opts: opts}
}

// Run 执行一次完整播种。清理用户失败会被忽略，之后任何一步失败都会中止并返回错误。
func (l *Loader) Run(ctx context.Context) (*Result, error) {
	tx := l.db.WithContext(ctx)

	l.clearUsers(tx)

	if l.opts.ResetAll {
		if err := l.clearScoring(tx); err != nil {
			return nil, err
		}
	} else {
		l.warnExistingTemplates(tx)
	}

	result := &Result{}

	templates := make(map[string]uint, len(l.fixtures.Templates))
	for _, fixture := range l.fixtures.Templates {
		record := db.Template{
			Name:        strings.TrimSpace(fixture.Name),
			Description: strings.TrimSpace(fixture.Description),
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("seed: create template %q: %w", fixture.Ref, err)
		}
		result.Templates = append(result.Templates, record)
		templates[fixture.Ref] = record.ID
	}

	maps := make(map[string]uint, len(l.fixtures.ChallengePointMaps))
	for _, fixture := range l.fixtures.ChallengePointMaps {
		templateID, ok := templates[fixture.Template]
		if !ok {
			return nil, fmt.Errorf("seed: challenge point map %q: unknown template %q", fixture.Ref, fixture.Template)
		}
		record := db.ChallengePointMap{
			Challenge:  strings.TrimSpace(fixture.Challenge),
			Points:     fixture.Points,
			TemplateID: templateID,
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("seed: create challenge point map %q: %w", fixture.Ref, err)
		}
		result.ChallengePointMaps = append(result.ChallengePointMaps, record)
		maps[fixture.Ref] = record.ID
	}

	users := make(map[string]uint, len(l.fixtures.Users))
	for _, fixture := range l.fixtures.Users {
		record := db.User{
			Name:    strings.TrimSpace(fixture.Name),
			Email:   strings.ToLower(strings.TrimSpace(fixture.Email)),
			IsAdmin: fixture.IsAdmin,
		}
		if fixture.IsAdmin && l.opts.AdminPassword != "" {
			hashed, err := db.HashPassword(l.opts.AdminPassword)
			if err != nil {
				return nil, fmt.Errorf("seed: hash password for %q: %w", fixture.Ref, err)
			}
			record.PasswordHash = hashed
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("seed: create user %q: %w", fixture.Ref, err)
		}
		result.Users = append(result.Users, record)
		users[fixture.Ref] = record.ID
	}

	for idx, fixture := range l.fixtures.Activities {
		userID, ok := users[fixture.User]
		if !ok {
			return nil, fmt.Errorf("seed: activity #%d: unknown user %q", idx+1, fixture.User)
		}
		mapID, ok := maps[fixture.ChallengePointMap]
		if !ok {
			return nil, fmt.Errorf("seed: activity #%d: unknown challenge point map %q", idx+1, fixture.ChallengePointMap)
		}
		record := db.Activity{UserID: userID, ChallengePointMapID: mapID}
		if err := tx.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("seed: create activity #%d: %w", idx+1, err)
		}
		result.Activities = append(result.Activities, record)
	}

	l.logger.Info("Database has been seeded. 🌱",
		zap.Int("templates", len(result.Templates)),
		zap.Int("challenge_point_maps", len(result.ChallengePointMaps)),
		zap.Int("users", len(result.Users)),
		zap.Int("activities", len(result.Activities)),
	)
	return result, nil
}

// clearUsers 硬删除全部用户，表不存在等错误静默忽略。关联的 Activity 由外键级联删除。
func (l *Loader) clearUsers(tx *gorm.DB) {
	err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&db.User{}).Error
	if err != nil {
		l.logger.Debug("skip clearing users", zap.Error(err))
	}
}

func (l *Loader) clearScoring(tx *gorm.DB) error {
	global := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for _, step := range []struct {
		name  string
		model interface{}
	}{
		{name: "activities", model: &db.Activity{}},
		{name: "challenge point maps", model: &db.ChallengePointMap{}},
		{name: "templates", model: &db.Template{}},
	} {
		if err := global.Delete(step.model).Error; err != nil {
			return fmt.Errorf("seed: clear %s: %w", step.name, err)
		}
	}
	return nil
}

func (l *Loader) warnExistingTemplates(tx *gorm.DB) {
	var count int64
	if err := tx.Model(&db.Template{}).Count(&count).Error; err != nil || count == 0 {
		return
	}
	l.logger.Warn("templates are not cleared before seeding; existing rows will be duplicated (use --reset-all)",
		zap.Int64("existing_templates", count))
}
