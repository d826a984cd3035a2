package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/tracer"
)

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	m := metrics.NewCollector("clinicflow", prometheus.DefaultRegisterer)

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	// Runs last, after the server and audit writer have drained.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database, log, m)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}
	if cfg.Database.Seed {
		if err := database.Seed(ctx, db, log); err != nil {
			return err
		}
	}

	timeout := cfg.Database.QueryTimeout
	appointments := repository.NewAppointmentRepository(db, timeout)
	patients := repository.NewPatientRepository(db, timeout)
	doctors := repository.NewDoctorRepository(db, timeout)
	catalogRepo := repository.NewCatalogRepository(db, timeout)
	users := repository.NewUserRepository(db, timeout)

	auditSvc := service.NewAuditService(repository.NewAuditRepository(db, timeout), log.Named("audit"), m)
	jwtManager := auth.NewJWTManager(cfg.JWT)
	authSvc := service.NewAuthService(users, jwtManager, auditSvc, log.Named("auth"))

	if cfg.Bootstrap.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			return err
		}
	}

	apiLimiter, authLimiter, closeLimiters := buildLimiters(cfg.RateLimit, log)
	defer closeLimiters()

	router := handler.NewRouter(handler.Deps{
		Config:      cfg,
		Log:         log,
		Metrics:     m,
		Tokens:      jwtManager,
		APILimiter:  apiLimiter,
		AuthLimiter: authLimiter,
		Ready: func(ctx context.Context) error {
			return database.Ping(ctx, db, cfg.Database.QueryTimeout)
		},
		Services: handler.Services{
			Auth:         authSvc,
			Appointments: service.NewAppointmentService(appointments, patients, doctors, catalogRepo, auditSvc, m, log.Named("appointments")),
			Availability: service.NewAvailabilityService(appointments, doctors, catalogRepo, m, log.Named("availability")),
			Patients:     service.NewPatientService(patients, catalogRepo, auditSvc, m, log.Named("patients")),
			Doctors:      service.NewDoctorService(doctors, catalogRepo, auditSvc, log.Named("doctors")),
			Catalog:      service.NewCatalogService(catalogRepo, auditSvc, log.Named("catalog")),
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      otelhttp.NewHandler(router, "clinicflow-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	auditSvc.Shutdown(shutdownCtx)

	log.Info("server stopped")
	return nil
}

// buildLimiters returns Redis backed limiters when RATE_LIMIT_REDIS_ADDR is
// set, so that every instance shares one budget, and in-memory ones otherwise.
func buildLimiters(cfg config.RateLimitConfig, log *zap.Logger) (api, authLimiter middleware.Limiter, closeFn func()) {
	if cfg.RedisAddr == "" {
		return middleware.NewIPLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
			middleware.PerMinute(cfg.AuthRequestsPerMinute),
			func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Info("using shared rate limits", zap.String("redis_addr", cfg.RedisAddr))
	return middleware.NewRedisLimiter(rdb, cfg.BurstSize, time.Second, "clinicflow:rl:api"),
		middleware.NewRedisLimiter(rdb, cfg.AuthRequestsPerMinute, time.Minute, "clinicflow:rl:auth"),
		func() { _ = rdb.Close() }
}
