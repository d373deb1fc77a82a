package db

import "gorm.io/gorm"

// SystemSetting 存储系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName 表示站点名称。
	SettingKeySiteName = "site_name"
	// SettingKeyVAPIDPublicKey 表示 Web Push 的 VAPID 公钥。
	SettingKeyVAPIDPublicKey = "vapid_public_key"
	// SettingKeyVAPIDPrivateKey 表示 Web Push 的 VAPID 私钥。
	SettingKeyVAPIDPrivateKey = "vapid_private_key"
)
