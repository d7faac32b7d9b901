package main

import (
	"context"
	"log"
	"os"

	"sahaj/internal/analysis"
	"sahaj/internal/api"
	"sahaj/internal/auth"
	"sahaj/internal/config"
	"sahaj/internal/gateway"
	"sahaj/internal/locate"
	"sahaj/internal/logger"
	"sahaj/internal/redis"
	"sahaj/internal/templates"
	"sahaj/internal/worker"
	"sahaj/internal/workspace"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("SAHAJ_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl := logger.NewZapLogger(cfg.BasicConfig.LogFile, cfg.BasicConfig.Production)
	defer zl.Sync()
	if cfg.BasicConfig.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()
	gemini, err := gateway.NewGemini(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("init gateway: %v", err)
	}
	// logging sits outside the timeout so timed out calls are logged too
	gw := gateway.WithLogging(gateway.WithTimeout(gemini, cfg.Gateway.Timeout()), zl)

	library, err := templates.New(ctx, cfg.BasicConfig.TemplateDir, zl)
	if err != nil {
		log.Fatalf("load templates: %v", err)
	}

	dispatcher := worker.NewDispatcher(
		cfg.Dispatcher.MinWorkers,
		cfg.Dispatcher.MaxWorkers,
		cfg.Dispatcher.QueueSize,
		cfg.Dispatcher.IdleTimeout(),
		zl,
	)
	defer dispatcher.Close()

	workspaces := workspace.NewManager(workspace.Deps{
		Orchestrator: analysis.NewOrchestrator(gw),
		Chatter:      gw,
		Locator:      locate.NewService(gw, zl),
		Dispatcher:   dispatcher,
		Log:          zl,
		MaxUpload:    cfg.BasicConfig.MaxUploadBytes(),
	}, cfg.BasicConfig.WorkspaceLifetime(), cfg.BasicConfig.WorkspaceCleanupInterval())
	defer workspaces.Close()

	authService := auth.NewService(rdb, cfg.BasicConfig.WorkspaceLifetime())
	handlers := api.NewHandler(workspaces, authService, library, cfg.BasicConfig.MaxUploadBytes(), zl)
	router := api.NewRouter(handlers, zl)

	addr := cfg.BasicConfig.ServerAddress
	zl.Info("main", "server starting", map[string]interface{}{"addr": addr})
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
