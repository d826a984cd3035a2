package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
)

type AppointmentHandler struct {
	booking      *service.AppointmentService
	availability *service.AvailabilityService
}

func NewAppointmentHandler(booking *service.AppointmentService, availability *service.AvailabilityService) *AppointmentHandler {
	return &AppointmentHandler{booking: booking, availability: availability}
}

// Availability handles GET /appointments/availability?doctor_id=&date=.
func (h *AppointmentHandler) Availability(c *gin.Context) {
	var problems []string
	doctorID := queryID(c, "doctor_id", &problems)
	date := queryDate(c, "date", &problems)
	if len(problems) > 0 {
		respondValidation(c, problems...)
		return
	}

	var (
		id  int64
		day time.Time
	)
	if doctorID != nil {
		id = *doctorID
	}
	if date != nil {
		day = *date
	}

	slots, err := h.availability.AvailableSlots(c.Request.Context(), id, day)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, availabilityResponse{
		DoctorID: id,
		Date:     day.Format(appointment.DateLayout),
		Slots:    nonNil(slots),
	})
}

// AvailableDoctors handles GET /doctors/available?service_id=&date=.
func (h *AppointmentHandler) AvailableDoctors(c *gin.Context) {
	var problems []string
	serviceID := queryID(c, "service_id", &problems)
	date := queryDate(c, "date", &problems)
	if len(problems) > 0 {
		respondValidation(c, problems...)
		return
	}

	var (
		id  int64
		day time.Time
	)
	if serviceID != nil {
		id = *serviceID
	}
	if date != nil {
		day = *date
	}

	doctors, err := h.availability.AvailableDoctors(c.Request.Context(), id, day)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, mapSlice(doctors, toAvailableDoctor))
}

// Book handles POST /appointments.
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.BookCommand{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ServiceID: req.ServiceID,
		Time:      req.Time,
	}
	if req.Date != "" {
		d, err := appointment.ParseDate(req.Date)
		if err != nil {
			respondValidation(c, "date must use the YYYY-MM-DD format")
			return
		}
		cmd.Date = d
	}

	a, err := h.booking.Book(c.Request.Context(), cmd, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, toAppointmentResponse(a))
}

// UpdateStatus handles PATCH /appointments/:id/status.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.booking.UpdateStatus(c.Request.Context(), id, appointment.Status(req.Status), middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

// Get handles GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	v, err := h.booking.Get(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentView(v))
}

// List handles GET /appointments?date=&doctor_id=&patient_id=&status=&page=&page_size=.
func (h *AppointmentHandler) List(c *gin.Context) {
	var problems []string
	q := &appointment.ListAppointmentsQuery{
		Date:      queryDate(c, "date", &problems),
		DoctorID:  queryID(c, "doctor_id", &problems),
		PatientID: queryID(c, "patient_id", &problems),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := appointment.Status(raw)
		q.Status = &status
	}
	if len(problems) > 0 {
		respondValidation(c, problems...)
		return
	}

	result, err := h.booking.List(c.Request.Context(), q, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pagedResponse[appointmentViewResponse]{
		Items:      mapSlice(result.Appointments, toAppointmentView),
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}
