package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"ratedesk/internal/infra/config"
	"ratedesk/internal/infra/obs"
)

type RatesHTTP interface {
	Calculate(c *gin.Context)
	Export(c *gin.Context)
}

type CatalogHTTP interface {
	Partners(c *gin.Context)
	Plans(c *gin.Context)
	Categories(c *gin.Context)
	PartnerPlans(c *gin.Context)
	PlanCategories(c *gin.Context)
	PartnerAdjustments(c *gin.Context)
}

type AdminHTTP interface {
	Reload(c *gin.Context)
}

type Handlers struct {
	Rates   RatesHTTP
	Catalog CatalogHTTP
	Admin   AdminHTTP
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", ClientSessionHeader, "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Content-Disposition",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Catalog != nil {
		api.GET("/partners", h.Catalog.Partners)
		api.GET("/partners/:id/plans", h.Catalog.PartnerPlans)
		api.GET("/partners/:id/adjustments", h.Catalog.PartnerAdjustments)
		api.GET("/plans", h.Catalog.Plans)
		api.GET("/plans/:id/categories", h.Catalog.PlanCategories)
		api.GET("/categories", h.Catalog.Categories)
	}
	if h.Rates != nil {
		api.POST("/rates/calculate", h.Rates.Calculate)
		api.POST("/rates/calculate/export", h.Rates.Export)
	}
	if h.Admin != nil {
		api.POST("/admin/reference/reload", h.Admin.Reload)
	}
	return router
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
