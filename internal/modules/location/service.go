package location

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/nomia-hq/nomia/internal/models"
	"github.com/nomia-hq/nomia/internal/pkg/pagination"
	"github.com/nomia-hq/nomia/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	// ErrSlugTaken means another location already uses the slug.
	ErrSlugTaken = errors.New("slug is already in use")
	// ErrBadSlug means the slug is not lowercase kebab-case.
	ErrBadSlug = errors.New("slug must be lowercase letters, digits and hyphens")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Service manages the location registry.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, q pagination.Query) ([]models.LocationModel, response.Pagination, error) {
	query := s.db.WithContext(ctx).
		Model(&models.LocationModel{}).
		Order("created_at ASC")

	var locations []models.LocationModel
	meta, err := pagination.Paginate(query, q, &locations)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return locations, meta, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.LocationModel, error) {
	var loc models.LocationModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&loc).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func (s *Service) Create(ctx context.Context, req createRequest) (*models.LocationModel, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrBadSlug
	}

	loc := &models.LocationModel{
		Name:      strings.TrimSpace(req.Name),
		Slug:      slug,
		Address:   strings.TrimSpace(req.Address),
		ManagerID: strings.TrimSpace(req.ManagerID),
		Enabled:   true,
	}
	if err := s.db.WithContext(ctx).Create(loc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return loc, nil
}

func (s *Service) Update(ctx context.Context, id string, req updateRequest) (*models.LocationModel, error) {
	loc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.ManagerID != nil {
		updates["manager_id"] = strings.TrimSpace(*req.ManagerID)
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) == 0 {
		return loc, nil
	}

	if err := s.db.WithContext(ctx).Model(loc).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Disable stops rotation and issuance for a location without touching its
// history. Locations are never hard-deleted; events reference them.
func (s *Service) Disable(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.LocationModel{}).
		Where("id = ?", id).
		Update("enabled", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
