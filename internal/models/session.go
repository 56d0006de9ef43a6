package models

import "time"

// UserSession is one signed-in device. The JWT carries the session ID, so a
// revoked or expired row kills the token before its own exp claim does;
// updated_at doubles as "last seen" for the session list.
type UserSession struct {
	Base
	UserID    string     `json:"user_id"    gorm:"index;not null"`
	IP        string     `json:"ip"         gorm:"type:varchar(64)"`
	UserAgent string     `json:"user_agent" gorm:"type:text"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }

// Active reports whether the session can still authenticate at now.
func (s *UserSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
