package appointment

import (
	"context"
	"time"
)

type Repository interface {
	// FindScheduled returns the occupied slots of a doctor on a date.
	FindScheduled(ctx context.Context, doctorID int64, date time.Time) ([]Booked, error)

	// InsertIfSlotFree persists a scheduled appointment atomically. A slot already
	// held by another scheduled appointment yields an error matching ErrSlotConflict.
	InsertIfSlotFree(ctx context.Context, a *Appointment) error

	// UpdateStatus moves an appointment from one status to another in a single
	// compare-and-set. Returns ErrAppointmentNotFound or ErrStatusChanged.
	UpdateStatus(ctx context.Context, id int64, from, to Status, at time.Time) error

	GetByID(ctx context.Context, id int64) (*Appointment, error)
	GetView(ctx context.Context, id int64) (*View, error)
	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)
}
