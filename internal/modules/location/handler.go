package location

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nomia-hq/nomia/internal/middleware"
	"github.com/nomia-hq/nomia/internal/pkg/pagination"
	"github.com/nomia-hq/nomia/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler exposes the location registry endpoints. Reads are open to any
// authenticated user; writes are admin-only.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	grp := rg.Group("/locations", authMW)
	{
		grp.GET("", h.list)
		grp.GET("/:id", h.get)

		admin := grp.Group("", middleware.RequireAdmin())
		{
			admin.POST("", h.create)
			admin.PATCH("/:id", h.update)
			admin.DELETE("/:id", h.disable)
		}
	}
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	locations, meta, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, locations, meta)
}

func (h *Handler) get(c *gin.Context) {
	loc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "location not found")
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, loc)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name and slug are required")
		return
	}

	loc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadSlug):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrSlugTaken):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, loc)
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	loc, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "location not found")
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, loc)
}

func (h *Handler) disable(c *gin.Context) {
	err := h.service.Disable(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "location not found")
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}
