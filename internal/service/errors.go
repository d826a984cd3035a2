package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// ValidationError lists every rejected input, not just the first one. Each
// entry starts with the offending field name, e.g. "time must be an hourly slot".
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// HasField reports whether field is among the rejected inputs.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f == field || strings.HasPrefix(f, field+" ") {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, problem string) {
	e.Fields = append(e.Fields, field+" "+problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Actor identifies who is calling, for audit purposes.
type Actor struct {
	UserID    uuid.UUID
	Role      domain.Role
	DoctorID  *int64
	IP        string
	RequestID string
}

// scopedDoctor returns the doctor a caller is restricted to, if any.
func (a Actor) scopedDoctor() (int64, bool) {
	if a.Role == domain.RoleDoctor && a.DoctorID != nil {
		return *a.DoctorID, true
	}
	return 0, false
}

type AuditEntry struct {
	Actor        Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      string
}
