package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/campusflow/ums-api/api/swagger"
	"github.com/campusflow/ums-api/internal/handler"
	"github.com/campusflow/ums-api/internal/repository"
	"github.com/campusflow/ums-api/internal/service"
	"github.com/campusflow/ums-api/pkg/cache"
	"github.com/campusflow/ums-api/pkg/config"
	"github.com/campusflow/ums-api/pkg/database"
	"github.com/campusflow/ums-api/pkg/jobs"
	"github.com/campusflow/ums-api/pkg/logger"
	"github.com/campusflow/ums-api/pkg/storage"
)

// @title CampusFlow UMS API
// @version 1.0.0
// @description University scheduling and enrollment service
// @BasePath /api/v1
// @schemes http

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	txm := database.NewTxManager(db)
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo := repository.NewCacheRepository(client, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, true)
		}
	}

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}

	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lecturerRepo := repository.NewLecturerRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewClassSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	userRepo := repository.NewUserRepository(db)

	departmentSvc := service.NewDepartmentService(txm, departmentRepo, validate, logr)
	courseSvc := service.NewCourseService(txm, courseRepo, departmentRepo, sessionRepo, validate, logr)
	lecturerSvc := service.NewLecturerService(txm, lecturerRepo, courseRepo, departmentRepo, assignmentRepo, sessionRepo, validate, logr)
	studentSvc := service.NewStudentService(txm, studentRepo, departmentRepo, enrollmentRepo, validate, logr)
	sessionSvc := service.NewClassSessionService(txm, sessionRepo, courseRepo, lecturerRepo, assignmentRepo, enrollmentRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(txm, enrollmentRepo, studentRepo, sessionRepo, validate, logr)
	if cacheSvc != nil {
		studentSvc.AttachCache(cacheSvc)
		sessionSvc.AttachCache(cacheSvc)
		enrollmentSvc.AttachCache(cacheSvc)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "ums-api",
	})

	reportSvc := service.NewReportService(studentRepo, sessionRepo, reportJobRepo, store,
		cfg.Reports.WorkerConcurrency, cfg.Reports.ResultTTL, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reportQueue := jobs.NewQueue("reports", reportSvc.ProcessJob, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.AttachQueue(reportQueue)
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Reports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reportSvc.Cleanup(ctx)
			}
		}
	}()

	router := handler.NewRouter(cfg, logr, authSvc, metricsSvc, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Departments: handler.NewDepartmentHandler(departmentSvc, metricsSvc),
		Courses:     handler.NewCourseHandler(courseSvc, metricsSvc),
		Lecturers:   handler.NewLecturerHandler(lecturerSvc, metricsSvc),
		Students:    handler.NewStudentHandler(studentSvc, sessionSvc),
		Sessions:    handler.NewClassSessionHandler(sessionSvc, metricsSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc),
		Reports:     handler.NewReportHandler(reportSvc, metricsSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
