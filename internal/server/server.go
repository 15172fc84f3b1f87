// Package server assembles the scene graph, history engine, skill registry,
// and HTTP surface into one runnable service.
package server

import (
	"fmt"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/novafield/rewind/internal/api/http"
	"github.com/novafield/rewind/internal/api/middleware"
	"github.com/novafield/rewind/internal/engine"
	"github.com/novafield/rewind/internal/history"
	"github.com/novafield/rewind/internal/infrastructure/config"
	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"github.com/novafield/rewind/internal/instances"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/skills"
	"github.com/novafield/rewind/internal/ws"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	router    *gin.Engine
	engine    *engine.Engine
	registry  *skills.Registry
	hub       *ws.Hub
	instances *instances.Registry
	target    string
	logger    *logging.Logger
	config    *config.Config
}

// New creates a server instance. Target is the project directory this
// instance serves; the asset root and history file resolve relative to it.
func New(cfg *config.Config, target string) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing rewind server",
		zap.String("port", cfg.Server.Port),
		zap.String("target", target),
	)

	metrics := monitoring.NewMetrics()

	catalog := scene.DefaultCatalog()
	if cfg.Scene.CatalogPath != "" {
		loaded, err := scene.LoadCatalog(resolve(target, cfg.Scene.CatalogPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load shape catalog: %w", err)
		}
		catalog = loaded
		logger.Info("loaded shape catalog", zap.String("path", cfg.Scene.CatalogPath))
	}

	graph := scene.NewGraph(catalog, scene.DefaultRegistry())
	assets := scene.NewAssets(resolve(target, cfg.Scene.AssetRoot), scene.DefaultSourcePatterns)
	store := history.NewStore(resolve(target, cfg.History.Path), logger)

	eng := engine.New(graph, assets, store, logger, metrics)
	eng.Recorder.SetSaveEvery(cfg.History.SaveEvery)
	engine.AttachBackstop(graph, eng.Recorder)

	hub := ws.NewHub(logger, metrics)
	eng.SetNotifier(hub)

	registry := skills.NewRegistry()
	registry.SetMetrics(metrics)
	for _, provider := range []skills.Provider{
		skills.NewScene(eng),
		skills.NewAsset(eng),
		skills.NewHistory(eng),
	} {
		if err := registry.Register(provider); err != nil {
			return nil, fmt.Errorf("failed to register skill: %w", err)
		}
	}
	logger.Info("registered skills", zap.Any("stats", registry.Stats()))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, eng)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Skill surface
	router.GET("/skills", handlers.ListSkills)
	router.POST("/skills/execute", handlers.ExecuteSkill)

	// History surface
	router.GET("/history", handlers.History)
	router.GET("/sessions", handlers.Sessions)
	router.POST("/history/tasks/:id/undo", handlers.UndoTask)
	router.POST("/history/tasks/:id/redo", handlers.RedoTask)
	router.POST("/history/sessions/:id/undo", handlers.UndoSession)
	router.DELETE("/history/tasks/:id", handlers.DeleteTask)
	router.DELETE("/history", handlers.ClearHistory)

	// Event stream
	router.GET("/stream", hub.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		router:    router,
		engine:    eng,
		registry:  registry,
		hub:       hub,
		instances: instances.NewRegistry(""),
		target:    target,
		logger:    logger,
		config:    cfg,
	}, nil
}

// Engine exposes the underlying history engine, mainly for tests.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Router exposes the gin router, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run registers the instance and starts the HTTP server.
func (s *Server) Run() error {
	if _, err := s.instances.Register(s.target, s.config.Server.Port); err != nil {
		s.logger.Warn("failed to register instance", zap.Error(err))
	}
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close seals any open task, persists history, and deregisters the
// instance.
func (s *Server) Close() error {
	s.logger.Info("shutting down server")

	if task := s.engine.Recorder.EndTask(); task != nil {
		s.logger.Info("sealed open task on shutdown", zap.String("task_id", task.ID))
	}
	if err := s.instances.Deregister(s.target); err != nil {
		s.logger.Warn("failed to deregister instance", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}

func resolve(target, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(target, path)
}
