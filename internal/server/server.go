package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convo-chat/config"
	"convo-chat/internal/handler"
	"convo-chat/internal/metrics"
	"convo-chat/internal/middleware"
	"convo-chat/internal/ratelimit"
	"convo-chat/internal/transport/httpdto"
	"convo-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	User      *handler.UserHandler
	Broadcast *handler.BroadcastHandler
	Token     *handler.TokenHandler
	Upload    *handler.UploadHandler
}

// RouteOptions carries the cross-cutting pieces the routes need. Nil
// limiters leave their endpoints unlimited; a nil Health always reports
// healthy.
type RouteOptions struct {
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
	Health           func(ctx context.Context) error
	BroadcastLimiter ratelimit.Limiter
	TokenLimiter     ratelimit.Limiter
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly so tests can drive it with httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, opts RouteOptions) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger, opts.Metrics))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api/auth")
	{
		api.POST("/check-user", handlers.User.CheckUser)
		api.DELETE("/delete-user/:id", handlers.User.DeleteUser)
		api.POST("/add-user", handlers.User.AddUser)
		api.POST("/add-batch-users", handlers.User.AddBatchUsers)
		api.DELETE("/delete-batch-users/:startId", handlers.User.DeleteBatchUsers)
		api.POST("/add-user-with-id", handlers.User.AddUserWithID)
		api.POST("/onboard-user", handlers.User.Onboard)
		api.GET("/get-contacts", handlers.User.GetContacts)

		api.POST("/broadcast",
			middleware.RateLimitMiddleware(opts.BroadcastLimiter, "broadcast", s.logger),
			handlers.Broadcast.Broadcast)
		api.GET("/generate-token/:userId",
			middleware.RateLimitMiddleware(opts.TokenLimiter, "token", s.logger),
			handlers.Token.Generate)

		api.POST("/avatar/upload-url", handlers.Upload.AvatarUploadURL)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
