package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr      string
	Port            string
	DatabasePath    string
	SessionSecret   string
	GinMode         string
	LogLevel        string
	SiteBaseURL     string
	SiteName        string
	IconDir         string
	VAPIDSubject    string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// SubscribeRateLimit 为每个客户端 IP 每分钟允许的订阅上报次数，0 表示不限制。
	SubscribeRateLimit int
	AdminEmail         string
	AdminPassword      string
}

// LoadDotEnv 读取可选的 .env 文件；文件不存在不是错误，已有环境变量优先。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := getEnv("PORT", "8080")

	listenAddr := getEnv("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	siteBaseURL := strings.TrimRight(getEnv("SITE_BASE_URL", "http://localhost:"+port), "/")

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabasePath:       getEnv("DATABASE_PATH", "pointlog.db"),
		SessionSecret:      getEnv("SESSION_SECRET", "pointlog-dev-secret"),
		GinMode:            getEnv("GIN_MODE", "release"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SiteBaseURL:        siteBaseURL,
		SiteName:           getEnv("SITE_NAME", "PointLog"),
		IconDir:            getEnv("ICON_DIR", ""),
		VAPIDSubject:       getEnv("VAPID_SUBJECT", "mailto:admin@pointlog.local"),
		VAPIDPublicKey:     getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:    getEnv("VAPID_PRIVATE_KEY", ""),
		SubscribeRateLimit: getIntEnv("SUBSCRIBE_RATE_LIMIT", 30),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
