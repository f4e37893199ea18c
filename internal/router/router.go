package router

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examdeck/examdeck-backend/internal/config"
	"github.com/examdeck/examdeck-backend/internal/handler"
	"github.com/examdeck/examdeck-backend/internal/middleware"
	"github.com/examdeck/examdeck-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Catalog *handler.CatalogHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve the front-end statically when a web dir exists.
	if info, err := os.Stat(cfg.WebDir); err == nil && info.IsDir() {
		webGroup := router.Group("/app")
		webGroup.Use(middleware.CacheControl(3600))
		{
			webGroup.Static("/", cfg.WebDir)
		}
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Catalog Group ──────────────────────────────────────────────
	examsAPI := router.Group("/api/v1/exams")
	{
		examsAPI.GET("", handlers.Catalog.ListExams)
		examsAPI.POST("/import", handlers.Catalog.ImportExams)
		examsAPI.DELETE("/import", handlers.Catalog.DiscardImported)
		examsAPI.POST("/sample", handlers.Catalog.InstallSample)
	}

	// ─── 2. Session Group ──────────────────────────────────────────────
	sessionAPI := router.Group("/api/v1/exams/:exam_id/session")
	{
		sessionAPI.GET("", handlers.Session.OpenSession)
		sessionAPI.GET("/summary", handlers.Session.GetSummary)
		sessionAPI.POST("/answer", handlers.Session.SelectAnswer)
		sessionAPI.POST("/next", handlers.Session.GoNext)
		sessionAPI.POST("/previous", handlers.Session.GoPrevious)
		sessionAPI.POST("/reveal", handlers.Session.Reveal)
		sessionAPI.POST("/finalize", handlers.Session.Finalize)
		sessionAPI.POST("/review", handlers.Session.StartReviewAll)
		sessionAPI.POST("/review-wrong", handlers.Session.StartReviewWrong)
		sessionAPI.POST("/reset", handlers.Session.Reset)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.SessionStream)
	}

	return router
}
