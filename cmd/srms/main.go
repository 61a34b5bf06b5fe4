package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/srms-edu/srms/internal/admin"
	"github.com/srms-edu/srms/internal/app"
	"github.com/srms-edu/srms/internal/auth"
	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/guest"
	"github.com/srms-edu/srms/internal/instructor"
	"github.com/srms-edu/srms/internal/observability"
	"github.com/srms-edu/srms/internal/rolereq"
	"github.com/srms-edu/srms/internal/shared"
	"github.com/srms-edu/srms/internal/student"
	"github.com/srms-edu/srms/internal/ta"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "srms_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	invoker := gateway.New(pool, logger)

	authService := auth.NewService(invoker)
	adminService := admin.NewService(invoker)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            observability.NewMetrics(),
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager),
		GuestHandler:       guest.NewHandler(logger, invoker),
		RoleRequestHandler: rolereq.NewHandler(logger, invoker),
		StudentHandler:     student.NewHandler(logger, invoker, cfg.RecordsEncryptionKey),
		InstructorHandler:  instructor.NewHandler(logger, invoker),
		TAHandler:          ta.NewHandler(logger, invoker),
		AdminHandler:       admin.NewHandler(logger, adminService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
