package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
)

// Error codes clients can branch on.
const (
	CodeSlotConflict      = "SLOT_CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUnavailable       = "UNAVAILABLE"
	CodeAccountLocked     = "ACCOUNT_LOCKED"
)

// retryAfterSeconds is sent with 503 responses caused by an unavailable store.
const retryAfterSeconds = "5"

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondValidation(c *gin.Context, fields ...string) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{Error: "validation failed", Fields: fields})
}

func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	if errors.Is(err, domain.ErrUnavailable) {
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "service temporarily unavailable, retry shortly",
			Code:  CodeUnavailable,
		})
		return
	}

	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		respondValidation(c, validErr.Fields...)
		return
	}

	var conflict *appointment.SlotConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: conflict.Error(),
			Code:  CodeSlotConflict,
			Details: map[string]string{
				"doctor_id": strconv.FormatInt(conflict.DoctorID, 10),
				"date":      conflict.Date.Format(appointment.DateLayout),
				"time":      conflict.Time,
			},
		})
		return
	}

	var transition *appointment.TransitionError
	if errors.As(err, &transition) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: transition.Error(),
			Code:  CodeInvalidTransition,
			Details: map[string]string{
				"from": string(transition.From),
				"to":   string(transition.To),
			},
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrSlotConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeSlotConflict})

	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeInvalidTransition})

	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, catalog.ErrInsuranceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, doctor.ErrServiceAlreadyAssigned),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, catalog.ErrDuplicateName):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, appointment.ErrInvalidSlot),
		errors.Is(err, appointment.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  CodeAccountLocked,
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		respondValidation(c, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// queryID reads an optional positive integer filter. A malformed value is
// reported back as a validation failure rather than silently ignored.
func queryID(c *gin.Context, key string, problems *[]string) *int64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		*problems = append(*problems, key+" must be a positive integer")
		return nil
	}
	return &id
}

func queryDate(c *gin.Context, key string, problems *[]string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	d, err := appointment.ParseDate(raw)
	if err != nil {
		*problems = append(*problems, key+" must use the YYYY-MM-DD format")
		return nil
	}
	return &d
}
