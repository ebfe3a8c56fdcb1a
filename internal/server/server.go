package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codevault-labs/postgen/internal/config"
	"github.com/codevault-labs/postgen/internal/service"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Store      *service.PostStore
	Engine     *service.WorkflowEngine
	Reconciler *service.Reconciler
	Sweeper    *service.CleanupSweeper

	registry *ConnectionRegistry
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	storage, err := service.NewMinioStorage(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	store := service.NewPostStore(db, logger)
	extractor := service.NewContentExtractor(&cfg.Extractor, logger)
	gateway := service.NewRemoteGateway(&cfg.Generation, logger)
	engine := service.NewWorkflowEngine(store, extractor, gateway, storage, logger)
	reconciler := service.NewReconciler(store, logger)
	sweeper := service.NewCleanupSweeper(&cfg.Cleanup, logger, store, storage)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:     cfg,
		DB:         db,
		Router:     router,
		Logger:     logger,
		Store:      store,
		Engine:     engine,
		Reconciler: reconciler,
		Sweeper:    sweeper,
		registry:   NewConnectionRegistry(logger),
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		posts := api.Group("/posts")
		{
			posts.POST("", s.handleCreatePost)
			posts.GET("/:id", s.handleGetPost)
			posts.GET("/:id/updates", s.handlePostUpdates)
			posts.POST("/:id/select", s.handleSelectVariations)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start cleanup sweeper
	if err := s.Sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cleanup sweeper: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background work first
	s.Sweeper.Stop()
	s.registry.CloseAll()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
