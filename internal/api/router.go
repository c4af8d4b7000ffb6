package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/storyverse/internal/middleware"
	"github.com/lalith-99/storyverse/internal/repository"
	"github.com/lalith-99/storyverse/internal/service"
	"go.uber.org/zap"
)

// RouterConfig is everything the HTTP layer is built from. Health, when
// set, is checked by /v1/health; a failure answers 503.
type RouterConfig struct {
	Store     repository.ContentStore
	Service   *service.StoryService
	Media     MediaDispatcher
	Live      ThreadStreamer
	Metrics   http.Handler
	Health    func(ctx context.Context) error
	JWTSecret string
	TokenTTL  time.Duration
	Logger    *zap.Logger
}

// NewRouter registers every route. Health, auth and metrics are public;
// the rest of /v1 requires a token.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/v1/health", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				cfg.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	authHandler := NewAuthHandler(cfg.Store.Users(), cfg.JWTSecret, cfg.TokenTTL, cfg.Logger)
	r.POST("/v1/auth/signup", authHandler.Signup)
	r.POST("/v1/auth/login", authHandler.Login)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	users := NewUserHandler(cfg.Store.Users(), cfg.Service, cfg.Logger)
	v1.GET("/users/me", users.GetMe)
	v1.PATCH("/users/me", users.UpdateMe)
	v1.GET("/users/me/profile", users.Profile)
	v1.POST("/users/me/checkin", users.CheckIn)
	v1.GET("/users/:id/stats", users.Stats)

	genres := NewGenreHandler()
	v1.GET("/genres", genres.List)
	v1.GET("/genres/:id", genres.Get)
	v1.GET("/genres/:id/ideas", genres.Ideas)

	threads := NewThreadHandler(cfg.Store.Threads(), cfg.Store.Segments(), cfg.Service, cfg.Live, cfg.Logger)
	v1.GET("/threads", threads.List)
	v1.POST("/threads", threads.Create)
	v1.GET("/threads/:id", threads.Get)
	v1.PATCH("/threads/:id", threads.Update)
	v1.GET("/threads/:id/segments", threads.ListSegments)
	v1.POST("/threads/:id/segments", threads.Contribute)
	v1.GET("/threads/:id/live", threads.Live)

	segments := NewSegmentHandler(cfg.Service, cfg.Media, cfg.Logger)
	v1.POST("/segments/:id/like", segments.Like)
	v1.POST("/segments/:id/comments", segments.Comment)
	v1.POST("/segments/:id/media", segments.RequestMedia)

	return r
}
