package attendance

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nomia-hq/nomia/internal/middleware"
	"github.com/nomia-hq/nomia/internal/pkg/pagination"
	"github.com/nomia-hq/nomia/internal/pkg/reject"
	"github.com/nomia-hq/nomia/internal/pkg/response"
)

// Handler exposes the scan and history endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	grp := rg.Group("/attendance", authMW)
	{
		grp.POST("/scan", h.scan)
		grp.GET("/today", h.today)
		grp.GET("/events", h.events)
	}
}

type scanRequest struct {
	Token string `json:"token_string" binding:"required"`
}

func (h *Handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token_string is required")
		return
	}

	userID := middleware.CurrentUserID(c)
	result, err := h.service.RecordScan(c.Request.Context(), userID, strings.TrimSpace(req.Token))
	if err != nil {
		if r, ok := reject.As(err); ok {
			response.Rejected(c, r)
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, result)
}

func (h *Handler) today(c *gin.Context) {
	status, err := h.service.Today(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, status)
}

func (h *Handler) events(c *gin.Context) {
	q := pagination.FromContext(c)
	events, meta, err := h.service.ListEvents(c.Request.Context(), middleware.CurrentUserID(c), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, events, meta)
}
