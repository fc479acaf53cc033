package ginserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"roomledger/internal/infra/config"
	"roomledger/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Room(c *gin.Context)
	Price(c *gin.Context)
	Quote(c *gin.Context)
	Check(c *gin.Context)
}

type HoldHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
}

type AdminHTTP interface {
	CreateRoom(c *gin.Context)
	UpdatePricing(c *gin.Context)
	ApplyRange(c *gin.Context)
	Calendar(c *gin.Context)
	Export(c *gin.Context)
	CompleteHold(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
	Holds        HoldHTTP
	Admin        AdminHTTP
	AdminAuth    gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewRouter builds the gin engine without touching the global gin mode.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if cfg.RequestTimeout > 0 {
		router.Use(requestTimeout(cfg.RequestTimeout))
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/rooms/:id", h.Availability.Room)
		api.GET("/rooms/:id/price", h.Availability.Price)
		api.GET("/rooms/:id/quote", h.Availability.Quote)
		api.GET("/rooms/:id/availability", h.Availability.Check)
	}
	if h.Holds != nil {
		api.POST("/holds", h.Holds.Create)
		api.GET("/holds/:id", h.Holds.Get)
		api.POST("/holds/:id/confirm", h.Holds.Confirm)
		api.POST("/holds/:id/cancel", h.Holds.Cancel)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		if h.AdminAuth != nil {
			admin.Use(h.AdminAuth)
		}
		admin.POST("/rooms", h.Admin.CreateRoom)
		admin.PUT("/rooms/:id/pricing", h.Admin.UpdatePricing)
		admin.POST("/rooms/:id/calendar", h.Admin.ApplyRange)
		admin.GET("/rooms/:id/calendar", h.Admin.Calendar)
		admin.POST("/rooms/:id/calendar/export", h.Admin.Export)
		admin.POST("/holds/:id/complete", h.Admin.CompleteHold)
	}
	return router
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
