package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
)

type Handlers struct {
	Auth         *AuthHandler
	Appointments *AppointmentHandler
	Patients     *PatientHandler
	Doctors      *DoctorHandler
	Catalog      *CatalogHandler
}

// RegisterRoutes mounts the v1 API on api. authenticate guards everything but
// login and refresh, which go through authLimit instead.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, authenticate, authLimit gin.HandlerFunc) {
	staff := middleware.RequireRole(domain.RoleAdmin, domain.RoleReceptionist)
	admin := middleware.RequireRole(domain.RoleAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authLimit, h.Auth.Login)
		auth.POST("/refresh", authLimit, h.Auth.Refresh)
		auth.POST("/password", authenticate, h.Auth.ChangePassword)
	}

	protected := api.Group("", authenticate)

	protected.POST("/users", admin, h.Auth.CreateUser)

	appointments := protected.Group("/appointments")
	{
		appointments.GET("/availability", h.Appointments.Availability)
		appointments.GET("", h.Appointments.List)
		appointments.GET("/:id", h.Appointments.Get)
		appointments.POST("", staff, h.Appointments.Book)
		// Doctors may close their own appointments; the service enforces ownership.
		appointments.PATCH("/:id/status", h.Appointments.UpdateStatus)
	}

	doctors := protected.Group("/doctors")
	{
		doctors.GET("/available", h.Appointments.AvailableDoctors)
		doctors.GET("", h.Doctors.List)
		doctors.GET("/:id", h.Doctors.Get)
		doctors.POST("", admin, h.Doctors.Create)
		doctors.POST("/:id/services", admin, h.Doctors.AssignService)
	}

	patients := protected.Group("/patients")
	{
		patients.GET("", h.Patients.List)
		patients.GET("/:id", h.Patients.Get)
		patients.POST("", staff, h.Patients.Create)
		patients.PUT("/:id", staff, h.Patients.Update)
		patients.DELETE("/:id", staff, h.Patients.Deactivate)
	}

	protected.GET("/services", h.Catalog.ListServices)
	protected.POST("/services", admin, h.Catalog.CreateService)
	protected.GET("/insurances", h.Catalog.ListInsurances)
	protected.POST("/insurances", admin, h.Catalog.CreateInsurance)
}
