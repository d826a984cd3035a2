package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

// AvailabilityService answers which slots are still free. Results are a
// snapshot: a slot reported free may be taken before it is booked, in which
// case the booking fails with a slot conflict.
type AvailabilityService struct {
	appointments appointment.Repository
	doctors      doctor.Repository
	catalog      catalog.Repository
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewAvailabilityService(
	appointments appointment.Repository,
	doctors doctor.Repository,
	catalogRepo catalog.Repository,
	m *metrics.Collector,
	log *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		appointments: appointments,
		doctors:      doctors,
		catalog:      catalogRepo,
		metrics:      m,
		log:          log,
	}
}

type AvailableDoctor struct {
	Doctor    *doctor.Doctor
	FreeSlots []string
	Available bool
}

// AvailableSlots returns the free slot labels of a doctor on a date in calendar order.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	ctx, span := tracer.Start(ctx, "AvailabilityService.AvailableSlots")
	defer span.End()
	span.SetAttributes(attribute.Int64("doctor.id", doctorID), attribute.String("date", date.Format(appointment.DateLayout)))

	s.metrics.AvailabilityQueries.WithLabelValues("doctor").Inc()

	verr := &ValidationError{}
	if doctorID <= 0 {
		verr.add("doctor_id", "is required")
	}
	if date.IsZero() {
		verr.add("date", "is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		spanError(span, err)
		return nil, err
	}

	slots, err := s.freeSlots(ctx, doctorID, date)
	if err != nil {
		spanError(span, err)
		return nil, err
	}
	return slots, nil
}

// AvailableDoctors lists every active doctor offering the service together with
// their free slots on the date, ordered by doctor id.
func (s *AvailabilityService) AvailableDoctors(ctx context.Context, serviceID int64, date time.Time) ([]AvailableDoctor, error) {
	ctx, span := tracer.Start(ctx, "AvailabilityService.AvailableDoctors")
	defer span.End()
	span.SetAttributes(attribute.Int64("service.id", serviceID), attribute.String("date", date.Format(appointment.DateLayout)))

	s.metrics.AvailabilityQueries.WithLabelValues("service").Inc()

	verr := &ValidationError{}
	if serviceID <= 0 {
		verr.add("service_id", "is required")
	}
	if date.IsZero() {
		verr.add("date", "is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.catalog.GetService(ctx, serviceID); err != nil {
		spanError(span, err)
		return nil, err
	}

	doctors, err := s.doctors.ListActiveByService(ctx, serviceID)
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	result := make([]AvailableDoctor, 0, len(doctors))
	for _, d := range doctors {
		slots, err := s.freeSlots(ctx, d.ID, date)
		if err != nil {
			spanError(span, err)
			return nil, err
		}
		result = append(result, AvailableDoctor{
			Doctor:    d,
			FreeSlots: slots,
			Available: len(slots) > 0,
		})
	}
	return result, nil
}

func (s *AvailabilityService) freeSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	booked, err := s.appointments.FindScheduled(ctx, doctorID, appointment.NormalizeDate(date))
	if err != nil {
		return nil, fmt.Errorf("reading schedule of doctor %d: %w", doctorID, err)
	}

	occupied := make([]string, 0, len(booked))
	for _, b := range booked {
		occupied = append(occupied, b.Time)
	}
	return appointment.FreeSlots(occupied), nil
}
