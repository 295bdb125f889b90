package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/aidecare/internal/api/handlers"
	"github.com/your-org/aidecare/internal/api/ws"
	"github.com/your-org/aidecare/internal/auth"
	"github.com/your-org/aidecare/internal/llm"
	"github.com/your-org/aidecare/internal/pipeline"
	"github.com/your-org/aidecare/internal/queue"
	"github.com/your-org/aidecare/internal/storage"
)

type RouterConfig struct {
	DB        *storage.PostgresStore
	Images    *storage.ImageStore
	Sessions  *storage.SessionStore
	Producer  *queue.Producer
	Pipeline  *pipeline.Pipeline
	Generator llm.Client
	Hub       *ws.Hub

	MaxUploadSize int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())
	r.MaxMultipartMemory = cfg.MaxUploadSize

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Images, cfg.Sessions, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Account endpoints (no session yet)
	authH := handlers.NewAuthHandler(cfg.DB, cfg.Sessions)
	r.POST("/v1/auth/signup", authH.Signup)
	r.POST("/v1/auth/login", authH.Login)
	r.POST("/v1/auth/forgot-password", authH.ForgotPassword)

	// API v1 (session required)
	v1 := r.Group("/v1")
	v1.Use(auth.RequireSession(cfg.Sessions))

	v1.POST("/auth/logout", authH.Logout)
	v1.POST("/auth/password", authH.ChangePassword)

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Profile
	profileH := handlers.NewProfileHandler(cfg.DB, cfg.Images)
	v1.GET("/profile", profileH.Get)
	v1.PUT("/profile", profileH.Update)
	v1.POST("/profile/photo", profileH.UploadPhoto)
	v1.GET("/profile/photo", profileH.Photo)

	// Scans
	scanH := handlers.NewScanHandler(cfg.DB, cfg.Images, cfg.Pipeline, cfg.Generator)
	scanH.MaxUploadSize = cfg.MaxUploadSize
	v1.POST("/scans", scanH.Analyze)
	v1.GET("/scans", scanH.List)
	v1.GET("/scans/:id", scanH.Get)
	v1.GET("/scans/:id/image", scanH.Image)
	v1.GET("/scans/:id/overlay", scanH.Overlay)

	// Chat
	chatH := handlers.NewChatHandler(cfg.DB, cfg.Generator)
	v1.POST("/chat", chatH.Send)
	v1.GET("/chat/history", chatH.History)

	return r
}
