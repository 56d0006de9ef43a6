package token

import (
	"context"
	"errors"
	"time"

	"github.com/nomia-hq/nomia/internal/models"
	"gorm.io/gorm"
)

// Store persists issued tokens. Rows are append-only: rotation never updates
// or deletes, it only lets old rows fall out of the live window.
type Store interface {
	// Insert records a freshly minted token. Issuance is not complete until
	// this returns nil; an unpersisted token must never validate.
	Insert(ctx context.Context, t *models.PassTokenModel) error

	// Exists reports whether the nonce/signature pair was actually minted by
	// this issuer. No expiry filter: freshness is the validator's own step,
	// decided against its own clock.
	Exists(ctx context.Context, nonce, signature string) (bool, error)

	// Latest returns the newest unexpired token for a location, or
	// gorm.ErrRecordNotFound if none is live.
	Latest(ctx context.Context, locationID string, now time.Time) (*models.PassTokenModel, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the MySQL-backed token store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Insert(ctx context.Context, t *models.PassTokenModel) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *gormStore) Exists(ctx context.Context, nonce, signature string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PassTokenModel{}).
		Where("nonce = ? AND signature = ?", nonce, signature).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormStore) Latest(ctx context.Context, locationID string, now time.Time) (*models.PassTokenModel, error) {
	var t models.PassTokenModel
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND expires_at > ?", locationID, now).
		Order("expires_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LocationDirectory is the thin slice of location data issuance depends on.
type LocationDirectory interface {
	// Lookup returns the manager ID and enabled flag for a location, or
	// gorm.ErrRecordNotFound.
	Lookup(ctx context.Context, locationID string) (managerID string, enabled bool, err error)

	// EnabledIDs lists every location eligible for rotation.
	EnabledIDs(ctx context.Context) ([]string, error)
}

type gormDirectory struct {
	db *gorm.DB
}

// NewDirectory returns the MySQL-backed location directory.
func NewDirectory(db *gorm.DB) LocationDirectory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) Lookup(ctx context.Context, locationID string) (string, bool, error) {
	var loc models.LocationModel
	err := d.db.WithContext(ctx).
		Select("id", "manager_id", "enabled").
		Where("id = ?", locationID).
		First(&loc).Error
	if err != nil {
		return "", false, err
	}
	return loc.ManagerID, loc.Enabled, nil
}

func (d *gormDirectory) EnabledIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).
		Model(&models.LocationModel{}).
		Where("enabled = ?", true).
		Pluck("id", &ids).Error
	return ids, err
}

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
