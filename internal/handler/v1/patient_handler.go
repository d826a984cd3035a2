package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
)

type PatientHandler struct {
	patients *service.PatientService
}

func NewPatientHandler(patients *service.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.patients.CreatePatient(c.Request.Context(), &patient.CreatePatientCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Document:    req.Document,
		Phone:       req.Phone,
		Email:       req.Email,
		InsuranceID: req.InsuranceID,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, toPatientResponse(p))
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	p, err := h.patients.GetPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toPatientResponse(p))
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.patients.UpdatePatient(c.Request.Context(), id, &patient.UpdatePatientCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Email:       req.Email,
		InsuranceID: req.InsuranceID,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toPatientResponse(p))
}

// Deactivate handles DELETE /patients/:id. The record is kept for history.
func (h *PatientHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.patients.DeactivatePatient(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List handles GET /patients?search=&include_inactive=&page=&page_size=.
func (h *PatientHandler) List(c *gin.Context) {
	result, err := h.patients.ListPatients(c.Request.Context(), &patient.ListPatientsQuery{
		Search:          c.Query("search"),
		IncludeInactive: c.Query("include_inactive") == "true",
		Page:            parseQueryInt(c, "page", 1),
		PageSize:        parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pagedResponse[patientResponse]{
		Items:      mapSlice(result.Patients, toPatientResponse),
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}
