package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"todo_collab/internal/api"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common/security"
	"todo_collab/internal/domain/repository"
	"todo_collab/internal/platform/cache"
	"todo_collab/internal/platform/config"
	"todo_collab/internal/platform/database"
	"todo_collab/internal/platform/logger"

	"github.com/charmbracelet/log"
	"github.com/thejerf/abtime"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	appLogger := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info("configuration loaded", "port", cfg.APIPort, "log_level", cfg.LogLevel)

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	if err := database.Migrate(context.Background()); err != nil {
		log.Fatal("could not migrate database", "err", err)
	}

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	todoRepo := repository.NewPgToDoRepository(database.DB)
	taskRepo := repository.NewPgTaskRepository(database.DB)
	stateRepo := repository.NewPgStateRepository(database.DB)
	revocationRepo := repository.NewRedisRevocationRepository(cache.RDB, cfg.RevokedTokenPrefix)

	// 6. Initialize Services
	clock := abtime.NewRealTime()
	services := api.Services{
		Auth:     service.NewAuthService(userRepo, revocationRepo),
		Users:    service.NewUserService(userRepo),
		ToDos:    service.NewToDoService(todoRepo, taskRepo, userRepo, clock),
		Tasks:    service.NewTaskService(taskRepo, todoRepo, stateRepo),
		States:   service.NewStateService(stateRepo),
		Security: service.NewSecurityService(todoRepo, taskRepo),
	}

	if cfg.AdminEmail != "" {
		if _, err := services.Users.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal("could not bootstrap admin account", "err", err)
		}
	}

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(appLogger, services, cfg.CookieSecure)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not listen", "port", cfg.APIPort, "err", err)
		}
	}()

	<-stop

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server shutdown failed", "err", err)
	}
	log.Info("server stopped gracefully")
}
