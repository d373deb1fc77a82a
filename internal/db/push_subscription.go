package db

import "gorm.io/gorm"

// PushSubscription 保存浏览器上报的推送订阅。
// Endpoint 唯一，重复上报时更新密钥；UserID 为空表示匿名订阅。
type PushSubscription struct {
	gorm.Model
	Key      string `gorm:"size:36;uniqueIndex;not null"`
	Endpoint string `gorm:"size:2048;uniqueIndex;not null"`
	P256dh   string `gorm:"not null"`
	Auth     string `gorm:"not null"`
	UserID   *uint  `gorm:"index"`
	User     *User  `gorm:"constraint:OnDelete:SET NULL"`
}
