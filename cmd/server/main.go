package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/config"
	"github.com/theratrack/theratrack-api/internal/database"
	"github.com/theratrack/theratrack-api/internal/handler"
	"github.com/theratrack/theratrack-api/internal/logging"
	"github.com/theratrack/theratrack-api/internal/queue"
	"github.com/theratrack/theratrack-api/internal/repository"
	"github.com/theratrack/theratrack-api/internal/router"
	"github.com/theratrack/theratrack-api/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := logging.New()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Fails closed: a missing or empty JWT secret never reaches serving.
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	if err != nil {
		logger.Fatal("init token service", zap.Error(err))
	}

	// nil when Redis is unreachable; rate limiting and caching degrade.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	clients := repository.NewClientRepo(db)
	goals := repository.NewGoalRepo(db)
	sessions := repository.NewSessionRepo(db)

	sessionSvc := service.NewSessionService(sessions, clients, users, service.PublishSessionCompleted, logger)

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, tokens, logger),
		Health:     handler.NewHealthHandler(db),
		Clients:    handler.NewClientHandler(clients, logger),
		Clinicians: handler.NewClinicianHandler(users, logger),
		Goals:      handler.NewGoalHandler(goals, clients, logger),
		Sessions:   handler.NewSessionHandler(sessionSvc, logger),
	}
	if cfg.Env == "dev" {
		h.Dev = handler.NewDevHandler(cfg, users, clients, goals, logger)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, tokens, rdb)

	// Payroll audit consumer; reconnects forever in the background.
	go func() {
		if err := queue.StartSessionCompletedConsumer(logger); err != nil {
			logger.Warn("payroll consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
