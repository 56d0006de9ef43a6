package models

import "time"

// EventKind is a closed variant: a scan is either a check-in or a check-out.
type EventKind string

const (
	KindEntrada EventKind = "entrada"
	KindSalida  EventKind = "salida"
)

// AttendanceEventModel is one committed check-in or check-out. Events are
// immutable once created and are never deleted; they form the audit trail.
//
// The composite unique index over (user_id, day, kind) is the storage-level
// enforcement of the daily cardinality invariant: at most one entrada and one
// salida per user per calendar day. Every insert goes through the guarded
// path in the attendance service; no other component writes this table.
type AttendanceEventModel struct {
	Base
	UserID     string    `json:"user_id"     gorm:"uniqueIndex:uniq_user_day_kind;not null"`
	Day        string    `json:"day"         gorm:"uniqueIndex:uniq_user_day_kind;type:varchar(10);not null"` // YYYY-MM-DD, reference timezone
	Kind       EventKind `json:"kind"        gorm:"uniqueIndex:uniq_user_day_kind;type:varchar(10);not null"`
	LocationID string    `json:"location_id" gorm:"index;not null"`
	TokenNonce string    `json:"token_nonce" gorm:"type:varchar(64);not null"` // token that authorized the scan
	RecordedAt time.Time `json:"recorded_at" gorm:"index;not null"`
}

func (AttendanceEventModel) TableName() string { return "attendance_events" }
