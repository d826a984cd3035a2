package appointment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrSlotConflict            = errors.New("appointment time slot is already booked")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrInvalidStatus           = errors.New("invalid appointment status")
	ErrInvalidSlot             = errors.New("time must be an hourly slot between 08:00 and 17:00")

	// ErrStatusChanged is returned by Repository.UpdateStatus when the row no
	// longer holds the expected status.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

// SlotConflictError reports a booking that lost the race for a slot.
// The caller should re-query availability and resubmit.
type SlotConflictError struct {
	DoctorID int64
	Date     time.Time
	Time     string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("doctor %d is already booked on %s at %s", e.DoctorID, e.Date.Format(DateLayout), e.Time)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change appointment status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }
