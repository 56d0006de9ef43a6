package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nomia-hq/nomia/internal/models"
	sessionpkg "github.com/nomia-hq/nomia/internal/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const apiTokenPrefix = "nmo"

var (
	// ErrBadCredentials covers unknown username and wrong password alike.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken means the username is already registered.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrAlreadyBootstrapped means open registration is closed because an
	// account already exists.
	ErrAlreadyBootstrapped = errors.New("registration is closed, ask an administrator")
)

// Service handles accounts, sessions and API tokens.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("AuthService")}
}

// Login verifies credentials and issues a session-bound JWT. Failures are
// delayed to blunt online guessing.
func (s *Service) Login(ctx context.Context, username, password, ip, ua string) (string, *models.UserModel, error) {
	var user models.UserModel
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			failDelay()
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		failDelay()
		s.log.Warn("login failed", zap.String("username", user.Username), zap.String("ip", ip))
		return "", nil, ErrBadCredentials
	}

	token, _, err := sessionpkg.Issue(s.db, user.ID, ip, ua, sessionpkg.DefaultTTL)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"last_login_time": &now,
		"last_login_ip":   ip,
	})

	s.log.Info("login", zap.String("username", user.Username), zap.String("ip", ip))
	return token, &user, nil
}

// Register creates the first account as an administrator. Once any account
// exists, registration is closed and admins create further users.
func (s *Service) Register(ctx context.Context, req registerRequest) (*models.UserModel, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserModel{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyBootstrapped
	}

	return s.createUser(ctx, createUserRequest{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Mail:     req.Mail,
		Role:     models.RoleAdmin,
	})
}

// CreateUser lets an administrator provision an account.
func (s *Service) CreateUser(ctx context.Context, req createUserRequest) (*models.UserModel, error) {
	if req.Role == "" {
		req.Role = models.RoleEmployee
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleEmployee {
		return nil, fmt.Errorf("unknown role %q", req.Role)
	}
	return s.createUser(ctx, req)
}

func (s *Service) createUser(ctx context.Context, req createUserRequest) (*models.UserModel, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.UserModel{
		Username: strings.TrimSpace(req.Username),
		Name:     strings.TrimSpace(req.Name),
		Mail:     strings.TrimSpace(req.Mail),
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// SignOut revokes the current session.
func (s *Service) SignOut(ctx context.Context, userID, sessionID string) error {
	return sessionpkg.Revoke(s.db, userID, sessionID)
}

// Session returns the current account plus its live sessions.
func (s *Service) Session(ctx context.Context, userID string) (*sessionResponse, error) {
	var user models.UserModel
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	sessions, err := sessionpkg.ListActive(s.db, userID)
	if err != nil {
		return nil, err
	}
	return &sessionResponse{User: &user, Sessions: sessions}, nil
}

// ListTokens returns the user's API tokens.
func (s *Service) ListTokens(ctx context.Context, userID string) ([]models.APIToken, error) {
	var tokens []models.APIToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// CreateToken mints a long-lived API token, typically for a kiosk that polls
// the live display token without a browser session.
func (s *Service) CreateToken(ctx context.Context, userID string, req createTokenRequest) (*models.APIToken, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	token := &models.APIToken{
		UserID:    userID,
		Token:     apiTokenPrefix + hex.EncodeToString(raw),
		Name:      strings.TrimSpace(req.Name),
		ExpiredAt: req.ExpiredAt,
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// DeleteToken removes one of the user's API tokens.
func (s *Service) DeleteToken(ctx context.Context, userID, tokenID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", tokenID, userID).
		Delete(&models.APIToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// failDelay makes failed logins cost three seconds.
func failDelay() {
	time.Sleep(3 * time.Second)
}
