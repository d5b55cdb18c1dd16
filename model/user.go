package model

import "time"

// 用户角色
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User 对应后端 users 表。InviterID 指向邀请人 User.ID
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Username     string     `gorm:"column:username;size:100;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	Points       int64      `gorm:"column:points;not null;default:0" json:"points"`
	InviterID    *int64     `gorm:"column:inviter_id;index" json:"inviterId"`
	InvitedAt    *time.Time `gorm:"column:invited_at" json:"invitedAt"`
	Role         string     `gorm:"column:role;size:20;not null;default:USER" json:"role"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// UserConfig 与 User 一对一
type UserConfig struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID       int64     `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	Language     string    `gorm:"column:language;size:20" json:"language"`
	Theme        string    `gorm:"column:theme;size:20" json:"theme"`
	DefaultModel string    `gorm:"column:default_model;size:100" json:"defaultModel"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (UserConfig) TableName() string {
	return "user_configs"
}
