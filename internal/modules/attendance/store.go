package attendance

import (
	"context"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/nomia-hq/nomia/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicate signals that the (user, day, kind) slot is already taken. It
// is the expected outcome of a benign race between two scans, not a fault.
var ErrDuplicate = errors.New("attendance event already recorded for this slot")

// Store is the only write path into the attendance event table.
type Store interface {
	// EventsForDay returns the user's committed events for one calendar day,
	// ordered by recorded_at ascending.
	EventsForDay(ctx context.Context, userID, day string) ([]models.AttendanceEventModel, error)

	// Insert commits one event. The insert is guarded by the unique index
	// over (user_id, day, kind); a violation comes back as ErrDuplicate.
	Insert(ctx context.Context, ev *models.AttendanceEventModel) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the MySQL-backed attendance store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) EventsForDay(ctx context.Context, userID, day string) ([]models.AttendanceEventModel, error) {
	var events []models.AttendanceEventModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Order("recorded_at ASC").
		Find(&events).Error
	return events, err
}

func (s *gormStore) Insert(ctx context.Context, ev *models.AttendanceEventModel) error {
	err := s.db.WithContext(ctx).Create(ev).Error
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *gomysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
