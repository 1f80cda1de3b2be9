package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentals/internal/infra/config"
	"rentals/internal/infra/obs"
)

type RentalHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	ChangeStatus(c *gin.Context)
	Cancel(c *gin.Context)
}

type ItemHTTP interface {
	Availability(c *gin.Context)
	Quote(c *gin.Context)
	Calendar(c *gin.Context)
}

type Handlers struct {
	Rentals         RentalHTTP
	Items           ItemHTTP
	ActorMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without binding an address.
func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", actorHeader, idempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.ActorMiddleware != nil {
		router.Use(h.ActorMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Rentals != nil {
		rentals := api.Group("/rentals")
		rentals.POST("", h.Rentals.Create)
		rentals.GET("/:id", h.Rentals.Get)
		rentals.PATCH("/:id", h.Rentals.Update)
		rentals.DELETE("/:id", h.Rentals.Delete)
		rentals.POST("/:id/status", h.Rentals.ChangeStatus)
		rentals.POST("/:id/cancel", h.Rentals.Cancel)
	}
	if h.Items != nil {
		items := api.Group("/items/:id")
		items.GET("/availability", h.Items.Availability)
		items.GET("/quote", h.Items.Quote)
		items.GET("/rentals", h.Items.Calendar)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
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
