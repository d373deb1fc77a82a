package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// DefaultPath 为未配置 DATABASE_PATH 时使用的数据库文件。
const DefaultPath = "pointlog.db"

// Models 返回需要自动迁移的全部模型，顺序与外键依赖一致。
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Template{},
		&ChallengePointMap{},
		&Activity{},
		&PushSubscription{},
		&SystemSetting{},
	}
}

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 pointlog.db。
func Init(databasePath string) error {
	gdb, err := Open(databasePath, logger.Warn)
	if err != nil {
		return err
	}

	// 自动迁移模式，为核心模型创建表
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Open 打开 sqlite 连接并强制开启外键约束，不做迁移。
func Open(databasePath string, level logger.LogLevel) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = DefaultPath
	}

	if !strings.HasPrefix(path, "file:") {
		if err := ensureParentDir(stripQuery(path)); err != nil {
			return nil, err
		}
	}

	return gorm.Open(sqlite.Open(WithForeignKeys(path)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
}

// Close 释放底层连接，重复调用安全。
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithForeignKeys 在 DSN 上追加 _foreign_keys=1，已存在时保持不变。
func WithForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}

func stripQuery(path string) string {
	if idx := strings.Index(path, "?"); idx >= 0 {
		return path[:idx]
	}
	return path
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
