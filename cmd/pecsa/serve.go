package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pecsa/pecsa-admin/internal/app"
	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/collaborators"
	"github.com/pecsa/pecsa-admin/internal/dashboard"
	"github.com/pecsa/pecsa-admin/internal/observability"
	"github.com/pecsa/pecsa-admin/internal/platform/cache"
	"github.com/pecsa/pecsa-admin/internal/platform/db"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/roles"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/users"
	"github.com/pecsa/pecsa-admin/internal/view"
)

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *envFile)
		},
	}
}

func serve(parent context.Context, envFile string) error {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return nil
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction(),
		shared.WithSigningSecret(cfg.SessionSecret))
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		return err
	}
	metrics := observability.NewMetrics()
	guard := rbac.Middleware{Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, cfg.LoginRateLimit)
	authHandler.ObserveLogins(metrics.ObserveLogin)

	rbacService := rbac.NewService(rbac.NewRepository(pool))
	collaboratorService := collaborators.NewService(collaborators.NewRepository(pool))
	userService := users.NewService(users.NewRepository(pool))
	roleService := roles.NewService(roles.NewRepository(pool))
	dashboardService := dashboard.NewService(collaboratorService, userService, roleService)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		DashboardHandler:     dashboard.NewHandler(logger, dashboardService, templates, csrfManager, guard),
		CollaboratorsHandler: collaborators.NewHandler(logger, collaboratorService, templates, csrfManager, guard),
		UsersHandler:         users.NewHandler(logger, userService, collaboratorService, templates, csrfManager, guard),
		RolesHandler:         roles.NewHandler(logger, roleService, userService, rbacService, templates, csrfManager, guard),
		Metrics:              metrics,
		Database:             pool,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server", slog.Any("error", err))
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
