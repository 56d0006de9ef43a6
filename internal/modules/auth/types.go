package auth

import (
	"time"

	"github.com/nomia-hq/nomia/internal/models"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  *models.UserModel `json:"user"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Mail     string `json:"mail"`
}

type createUserRequest struct {
	Username string          `json:"username" binding:"required"`
	Password string          `json:"password" binding:"required"`
	Name     string          `json:"name"`
	Mail     string          `json:"mail"`
	Role     models.UserRole `json:"role"`
}

type createTokenRequest struct {
	Name      string     `json:"name" binding:"required"`
	ExpiredAt *time.Time `json:"expired_at"`
}

type sessionResponse struct {
	User     *models.UserModel    `json:"user"`
	Sessions []models.UserSession `json:"sessions"`
}
