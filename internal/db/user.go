package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Email        string `gorm:"unique;not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	PasswordHash string
	Activities   []Activity `gorm:"constraint:OnDelete:CASCADE"`
}

// HashPassword 生成 bcrypt 哈希，空密码返回空串。
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword 校验明文密码，未设置密码的账号一律拒绝。
func (u *User) CheckPassword(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// EnsureAdmin 存在性检查：若邮箱与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的管理员。
func EnsureAdmin(gdb *gorm.DB, name, email, password string) error {
	trimmedEmail := strings.ToLower(strings.TrimSpace(email))
	if trimmedEmail == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("email = ?", trimmedEmail).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := HashPassword(password)
		if err != nil {
			return err
		}

		displayName := strings.TrimSpace(name)
		if displayName == "" {
			displayName = trimmedEmail
		}
		return gdb.Create(&User{Name: displayName, Email: trimmedEmail, IsAdmin: true, PasswordHash: hashed}).Error
	}

	return nil
}
