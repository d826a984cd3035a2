package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
)

type DoctorHandler struct {
	doctors *service.DoctorService
}

func NewDoctorHandler(doctors *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors}
}

// List handles GET /doctors?service_id=&active=.
func (h *DoctorHandler) List(c *gin.Context) {
	var problems []string
	q := &doctor.ListDoctorsQuery{
		ServiceID:  queryID(c, "service_id", &problems),
		ActiveOnly: c.Query("active") == "true",
	}
	if len(problems) > 0 {
		respondValidation(c, problems...)
		return
	}

	doctors, err := h.doctors.ListDoctors(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, mapSlice(doctors, toDoctorResponse))
}

func (h *DoctorHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	d, err := h.doctors.GetDoctor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toDoctorResponse(d))
}

func (h *DoctorHandler) Create(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.doctors.CreateDoctor(c.Request.Context(), &doctor.CreateDoctorCommand{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Specialty:  req.Specialty,
		Phone:      req.Phone,
		Email:      req.Email,
		ServiceIDs: req.ServiceIDs,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, toDoctorResponse(d))
}

// AssignService handles POST /doctors/:id/services.
func (h *DoctorHandler) AssignService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req assignServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.doctors.AssignService(c.Request.Context(), id, req.ServiceID, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
