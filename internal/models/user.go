package models

import "time"

// UserRole distinguishes administrators (who manage locations and issue
// display tokens) from regular employees (who scan them).
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleEmployee UserRole = "employee"
)

// UserModel represents an account that can authenticate against the API.
type UserModel struct {
	Base
	Username      string     `json:"username"        gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Mail          string     `json:"mail"`
	Password      string     `json:"-"               gorm:"not null"`
	Role          UserRole   `json:"role"            gorm:"type:varchar(16);default:'employee';index"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
	APITokens     []APIToken `json:"api_tokens,omitempty" gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string { return "users" }

func (u *UserModel) IsAdmin() bool { return u.Role == RoleAdmin }

// APIToken represents a personal API token for programmatic access, used by
// display kiosks that poll the live token without a browser session.
type APIToken struct {
	Base
	UserID    string     `json:"-"          gorm:"index;not null"`
	Token     string     `json:"token"      gorm:"uniqueIndex;not null"`
	Name      string     `json:"name"`
	ExpiredAt *time.Time `json:"expired_at"`
}

func (APIToken) TableName() string { return "api_tokens" }
