package models

import "time"

// PassTokenModel is the canonical record of an issued display token. A row
// here is part of the trust boundary: a token string that verifies
// cryptographically but has no row was never actually minted by this server.
// Rows are append-only; rotation lets old rows expire, nothing deletes them.
type PassTokenModel struct {
	Base
	Nonce      string    `json:"nonce"       gorm:"uniqueIndex;type:varchar(64);not null"`
	LocationID string    `json:"location_id" gorm:"index;not null"`
	ExpiresAt  time.Time `json:"expires_at"  gorm:"index;not null"`
	Signature  string    `json:"-"           gorm:"type:varchar(128);not null"`
}

func (PassTokenModel) TableName() string { return "pass_tokens" }
