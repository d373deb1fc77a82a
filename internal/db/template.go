package db

import "gorm.io/gorm"

// Template 是一组挑战计分规则的命名分组
type Template struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`
	// ChallengePointMaps 随模板删除
	ChallengePointMaps []ChallengePointMap `gorm:"constraint:OnDelete:CASCADE"`
}

// ChallengePointMap 将模板内的挑战标签映射到分值。
// 同一模板下的 challenge 不做唯一约束。
type ChallengePointMap struct {
	gorm.Model
	Challenge  string `gorm:"not null"`
	Points     int    `gorm:"not null"`
	TemplateID uint   `gorm:"index;not null"`
	Template   Template
	Activities []Activity `gorm:"constraint:OnDelete:CASCADE"`
}

// Activity 记录某个用户按某模板计分完成了某项挑战
type Activity struct {
	gorm.Model
	UserID              uint `gorm:"index;not null"`
	User                User
	ChallengePointMapID uint `gorm:"index;not null"`
	ChallengePointMap   ChallengePointMap
}
