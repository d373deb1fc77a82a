package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pointlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSiteName 为未配置站点名称时的回退值。
const DefaultSiteName = "PointLog"

// SystemSettings 描述站点级配置。
type SystemSettings struct {
	SiteName string
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db       *gorm.DB
	siteName string
}

// NewSystemSettingService 构造 SystemSettingService，siteName 为配置文件中的默认站点名称。
func NewSystemSettingService(gdb *gorm.DB, siteName string) *SystemSettingService {
	name := strings.TrimSpace(siteName)
	if name == "" {
		name = DefaultSiteName
	}
	return &SystemSettingService{db: gdb, siteName: name}
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{SiteName: s.siteName}

	value, ok, err := s.Get(db.SettingKeySiteName)
	if err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}
	if ok && strings.TrimSpace(value) != "" {
		result.SiteName = strings.TrimSpace(value)
	}
	return result, nil
}

// Get 读取单个键，未设置时 ok 为 false。
func (s *SystemSettingService) Get(key string) (string, bool, error) {
	var record db.SystemSetting
	if err := s.db.Where("key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return record.Value, true, nil
}

// SetMany 在一个事务中写入多个键。
func (s *SystemSettingService) SetMany(values map[string]string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := upsertSetting(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update system settings: %w", err)
	}
	return nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
