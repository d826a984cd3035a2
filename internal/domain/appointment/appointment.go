package appointment

import (
	"fmt"
	"strings"
	"time"
)

// State transitions possibilities:
//
//	scheduled → completed
//	scheduled → cancelled
//
// Completed and cancelled are terminal. Only scheduled appointments occupy a slot.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a client supplied label onto a known status. Matching
// ignores case, so "Completed" and "completed" are the same value.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range []Status{StatusScheduled, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

var transitions = map[Status][]Status{
	StatusScheduled: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID        int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID int64  `gorm:"column:patient_id;not null;index"`
	DoctorID  int64  `gorm:"column:doctor_id;not null;index"`
	ServiceID *int64 `gorm:"column:service_id;index"`

	// Date and Time form the slot key together with DoctorID.
	Date   time.Time `gorm:"column:slot_date;type:date;not null;index"`
	Time   string    `gorm:"column:slot_time;type:varchar(5);not null"`
	Status Status    `gorm:"column:status;type:varchar(20);not null;default:'scheduled';index"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	return CanTransition(a.Status, newStatus)
}

// TransitionTo moves the appointment to newStatus and stamps the matching timestamp.
func (a *Appointment) TransitionTo(newStatus Status, at time.Time) error {
	if !a.CanTransitionTo(newStatus) {
		return &TransitionError{From: a.Status, To: newStatus}
	}
	a.Status = newStatus
	switch newStatus {
	case StatusCompleted:
		a.CompletedAt = &at
	case StatusCancelled:
		a.CancelledAt = &at
	}
	return nil
}

// Booked is one occupied slot of a doctor's day.
type Booked struct {
	AppointmentID int64
	Time          string
}

type BookCommand struct {
	PatientID int64
	DoctorID  int64
	ServiceID *int64
	Date      time.Time
	Time      string
}

type ListAppointmentsQuery struct {
	Date      *time.Time
	DoctorID  *int64
	PatientID *int64
	Status    *Status
	Page      int
	PageSize  int
}

// View is the read-side projection of an appointment joined with display names.
type View struct {
	ID          int64
	PatientID   int64
	PatientName string
	DoctorID    int64
	DoctorName  string
	ServiceID   *int64
	ServiceName string
	Date        time.Time
	Time        string
	Status      Status
	CreatedAt   time.Time
}

type PagedAppointments struct {
	Appointments []*View
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
