package models

import "time"

// UserModel is the owner account guarding the admin API.
type UserModel struct {
	Base
	Username    string     `json:"username" gorm:"uniqueIndex;not null"`
	Password    string     `json:"-"        gorm:"not null"` // bcrypt hash
	LastLoginAt *time.Time `json:"last_login_at"`
}

func (UserModel) TableName() string { return "users" }
