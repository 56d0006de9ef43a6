package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nomia-hq/nomia/internal/middleware"
	"github.com/nomia-hq/nomia/internal/modules/attendance"
	"github.com/nomia-hq/nomia/internal/modules/auth"
	"github.com/nomia-hq/nomia/internal/modules/location"
	"github.com/nomia-hq/nomia/internal/modules/token"
	pkgredis "github.com/nomia-hq/nomia/internal/pkg/redis"
	"github.com/nomia-hq/nomia/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client, tokenSvc *token.Service, attendanceSvc *attendance.Service) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "nomia",
		"version":  "1.0.0",
		"homepage": "https://github.com/nomia-hq/nomia",
		"issues":   "https://github.com/nomia-hq/nomia/issues",
	}

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw()))
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group("/api/v1")

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })

	// Auth & users
	auth.NewHandler(auth.NewService(db, a.logger)).RegisterRoutes(api, authMW)

	// Locations and their display tokens
	location.NewHandler(location.NewService(db)).RegisterRoutes(api, authMW)
	token.NewHandler(tokenSvc).RegisterRoutes(api, authMW)

	// Attendance
	attendance.NewHandler(attendanceSvc).RegisterRoutes(api, authMW)

	// Background job visibility for operators
	system := api.Group("/system", authMW, middleware.RequireAdmin())
	{
		system.GET("/jobs", func(c *gin.Context) {
			response.OK(c, a.sched.List())
		})
		system.POST("/jobs/:name/run", func(c *gin.Context) {
			if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFound(c, err.Error())
				return
			}
			c.Status(http.StatusAccepted)
		})
	}
}
