package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nomia-hq/nomia/internal/middleware"
	"github.com/nomia-hq/nomia/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler exposes account, session and API token endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	grp := rg.Group("/auth")
	{
		grp.POST("/login", h.login)
		grp.POST("/register", h.register)

		authed := grp.Group("", authMW)
		{
			authed.POST("/sign-out", h.signOut)
			authed.GET("/session", h.session)
			authed.GET("/token", h.listTokens)
			authed.POST("/token", h.createToken)
			authed.DELETE("/token/:id", h.deleteToken)
			authed.POST("/users", middleware.RequireAdmin(), h.createUser)
		}
	}
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			response.Unauthorized(c)
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, loginResponse{Token: token, User: user})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyBootstrapped):
			response.Forbidden(c, err.Error())
		case errors.Is(err, ErrUsernameTaken):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, user)
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			response.Conflict(c, err.Error())
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, user)
}

func (h *Handler) signOut(c *gin.Context) {
	sid, _ := c.Get(middleware.ContextKeySID)
	sessionID, _ := sid.(string)
	if sessionID == "" {
		response.BadRequest(c, "sign-out requires a session token, not an api token")
		return
	}

	if err := h.service.SignOut(c.Request.Context(), middleware.CurrentUserID(c), sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "session not found")
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

func (h *Handler) session(c *gin.Context) {
	resp, err := h.service.Session(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *Handler) listTokens(c *gin.Context) {
	tokens, err := h.service.ListTokens(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tokens)
}

func (h *Handler) createToken(c *gin.Context) {
	var req createTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	token, err := h.service.CreateToken(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, token)
}

func (h *Handler) deleteToken(c *gin.Context) {
	err := h.service.DeleteToken(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "token not found")
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}
