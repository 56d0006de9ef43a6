package token

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nomia-hq/nomia/internal/middleware"
	"github.com/nomia-hq/nomia/internal/pkg/response"
	qrcode "github.com/skip2/go-qrcode"
)

// Handler exposes issuance and display endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the token endpoints. Issuance is admin-only; the
// current-token and QR endpoints accept any authenticated caller so kiosks
// can poll with an API token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	locations := rg.Group("/locations", authMW)
	{
		locations.POST("/:id/token", middleware.RequireAdmin(), h.issue)
		locations.GET("/:id/token/current", h.current)
		locations.GET("/:id/qr", h.qr)
	}
}

func (h *Handler) issue(c *gin.Context) {
	locationID := c.Param("id")
	issued, err := h.service.Issue(c.Request.Context(), locationID, middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidLocation):
			response.NotFound(c, "location does not exist or is disabled")
		case errors.Is(err, ErrForbidden):
			response.Forbidden(c, "you do not manage this location")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, issued)
}

func (h *Handler) current(c *gin.Context) {
	issued, err := h.service.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		if IsNotFound(err) {
			response.NotFound(c, "no live token for this location")
		} else {
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, issued)
}

// qr renders the live token as a PNG so a wall display only needs an <img>
// tag pointed at this endpoint.
func (h *Handler) qr(c *gin.Context) {
	issued, err := h.service.Current(c.Request.Context(), c.Param("id"))
	if err != nil {
		if IsNotFound(err) {
			response.NotFound(c, "no live token for this location")
		} else {
			response.InternalError(c, err)
		}
		return
	}

	size := 256
	if v, err := strconv.Atoi(c.DefaultQuery("size", "256")); err == nil && v >= 128 && v <= 1024 {
		size = v
	}

	png, err := qrcode.Encode(issued.Token, qrcode.Medium, size)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
