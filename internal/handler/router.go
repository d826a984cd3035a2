// Package handler assembles the HTTP surface: probes, metrics and the versioned API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

type Services struct {
	Auth         *service.AuthService
	Appointments *service.AppointmentService
	Availability *service.AvailabilityService
	Patients     *service.PatientService
	Doctors      *service.DoctorService
	Catalog      *service.CatalogService
}

type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Collector
	Tokens  middleware.TokenValidator

	// APILimiter applies to every request, AuthLimiter additionally to login and refresh.
	APILimiter  middleware.Limiter
	AuthLimiter middleware.Limiter

	// Ready reports whether dependencies (the database) can serve traffic.
	Ready func(ctx context.Context) error

	Services Services
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(d.Log),
		middleware.RequestID(),
		middleware.AccessLog(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.CORS(d.Config.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", readiness(d.Ready, d.Log))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api/v1", middleware.RateLimit(d.APILimiter, time.Second, d.Log))
	v1.RegisterRoutes(api, v1.Handlers{
		Auth:         v1.NewAuthHandler(d.Services.Auth),
		Appointments: v1.NewAppointmentHandler(d.Services.Appointments, d.Services.Availability),
		Patients:     v1.NewPatientHandler(d.Services.Patients),
		Doctors:      v1.NewDoctorHandler(d.Services.Doctors),
		Catalog:      v1.NewCatalogHandler(d.Services.Catalog),
	},
		middleware.Authenticate(d.Tokens),
		middleware.RateLimit(d.AuthLimiter, time.Minute, d.Log),
	)

	return r
}

func readiness(ready func(ctx context.Context) error, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "up"})
	}
}
