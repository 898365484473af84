package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/classrecord/classrecord-api/api/swagger"
	"github.com/classrecord/classrecord-api/internal/handler"
	"github.com/classrecord/classrecord-api/internal/repository"
	"github.com/classrecord/classrecord-api/internal/service"
	"github.com/classrecord/classrecord-api/pkg/cache"
	"github.com/classrecord/classrecord-api/pkg/config"
	"github.com/classrecord/classrecord-api/pkg/database"
	"github.com/classrecord/classrecord-api/pkg/logger"
)

// @title Class Record API
// @version 1.0.0
// @description Record-keeping API for class grades and attendance
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	validate := validator.New()

	accountRepo := repository.NewAccountRepository(db)
	classRepo := repository.NewClassRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authSvc := service.NewAuthService(accountRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		BcryptCost:         cfg.Accounts.BcryptCost,
	})

	classSvc := service.NewClassService(classRepo, rosterRepo, attendanceRepo, cacheSvc, validate, logr)

	rosterSvc := service.NewRosterService(rosterRepo, classRepo, accountRepo, attendanceRepo, cacheSvc, validate, logr, service.RosterConfig{
		StudentDefaultPassword: cfg.Accounts.StudentDefaultPassword,
		BcryptCost:             cfg.Accounts.BcryptCost,
	})

	attendanceSvc := service.NewAttendanceService(attendanceRepo, rosterRepo, classRepo, cacheSvc, validate, logr)

	accountSvc := service.NewAccountService(accountRepo, rosterRepo, attendanceRepo, cacheSvc, validate, logr, service.AccountConfig{
		TeacherDefaultPassword: cfg.Accounts.TeacherDefaultPassword,
		StudentDefaultPassword: cfg.Accounts.StudentDefaultPassword,
		BcryptCost:             cfg.Accounts.BcryptCost,
	})

	exportSvc := service.NewExportService(classSvc, rosterSvc, attendanceSvc, logr)

	r := handler.NewRouter(cfg, logr, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Class:      handler.NewClassHandler(classSvc, exportSvc),
		Roster:     handler.NewRosterHandler(rosterSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, exportSvc),
		Admin:      handler.NewAdminHandler(accountSvc),

		AuthService:    authSvc,
		MetricsService: metrics,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
