package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

type AppointmentService struct {
	appointments appointment.Repository
	patients     patient.Repository
	doctors      doctor.Repository
	catalog      catalog.Repository
	auditSvc     *AuditService
	metrics      *metrics.Collector
	log          *zap.Logger
	now          func() time.Time
}

func NewAppointmentService(
	appointments appointment.Repository,
	patients patient.Repository,
	doctors doctor.Repository,
	catalogRepo catalog.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		patients:     patients,
		doctors:      doctors,
		catalog:      catalogRepo,
		auditSvc:     auditSvc,
		metrics:      m,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves a slot for a patient. The insert itself is the arbiter between
// concurrent bookings: whoever loses gets a *appointment.SlotConflictError and
// nothing is retried here.
func (s *AppointmentService) Book(ctx context.Context, cmd *appointment.BookCommand, actor Actor) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Book")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("doctor.id", cmd.DoctorID),
		attribute.String("slot.time", cmd.Time),
	)

	if err := validateBookCommand(cmd); err != nil {
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	if err := s.checkReferences(ctx, cmd); err != nil {
		outcome := metrics.OutcomeInvalid
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
		case errors.Is(err, domain.ErrUnavailable):
			outcome = metrics.OutcomeError
		default:
			outcome = metrics.OutcomeNotFound
		}
		s.metrics.BookingsTotal.WithLabelValues(outcome).Inc()
		spanError(span, err)
		return nil, err
	}

	a := &appointment.Appointment{
		PatientID: cmd.PatientID,
		DoctorID:  cmd.DoctorID,
		ServiceID: cmd.ServiceID,
		Date:      appointment.NormalizeDate(cmd.Date),
		Time:      cmd.Time,
		Status:    appointment.StatusScheduled,
		CreatedAt: s.now(),
	}

	if err := s.appointments.InsertIfSlotFree(ctx, a); err != nil {
		spanError(span, err)
		if errors.Is(err, appointment.ErrSlotConflict) {
			s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
			s.log.Info("slot already booked",
				zap.Int64("doctor_id", a.DoctorID),
				zap.String("date", a.Date.Format(appointment.DateLayout)),
				zap.String("time", a.Time),
			)
			return nil, err
		}
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.log.Error("failed to book appointment", zap.Error(err))
		return nil, fmt.Errorf("booking appointment: %w", err)
	}

	s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeBooked).Inc()
	s.log.Info("appointment booked",
		zap.Int64("appointment_id", a.ID),
		zap.Int64("patient_id", a.PatientID),
		zap.Int64("doctor_id", a.DoctorID),
		zap.String("date", a.Date.Format(appointment.DateLayout)),
		zap.String("time", a.Time),
	)

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   strconv.FormatInt(a.ID, 10),
		Changes: fmt.Sprintf(`{"patient_id":%d,"doctor_id":%d,"date":%q,"time":%q}`,
			a.PatientID, a.DoctorID, a.Date.Format(appointment.DateLayout), a.Time),
	})

	return a, nil
}

const statusChoices = "status must be one of scheduled, completed, cancelled"

func validateBookCommand(cmd *appointment.BookCommand) error {
	verr := &ValidationError{}
	if cmd.PatientID <= 0 {
		verr.add("patient_id", "is required")
	}
	if cmd.DoctorID <= 0 {
		verr.add("doctor_id", "is required")
	}
	if cmd.ServiceID != nil && *cmd.ServiceID <= 0 {
		verr.add("service_id", "must be positive")
	}
	if cmd.Date.IsZero() {
		verr.add("date", "is required")
	}
	if !appointment.IsValidSlot(cmd.Time) {
		verr.add("time", "must be an hourly slot between 08:00 and 17:00")
	}
	return verr.orNil()
}

// checkReferences resolves the patient, doctor and optional service. Missing
// rows are not-found errors; rows that exist but cannot be booked are
// validation errors on the matching field.
func (s *AppointmentService) checkReferences(ctx context.Context, cmd *appointment.BookCommand) error {
	p, err := s.patients.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return err
	}
	d, err := s.doctors.GetByID(ctx, cmd.DoctorID)
	if err != nil {
		return err
	}

	verr := &ValidationError{}
	if !p.Active {
		verr.add("patient_id", "refers to an inactive patient")
	}
	if !d.Active {
		verr.add("doctor_id", "refers to an inactive doctor")
	}

	if cmd.ServiceID != nil {
		svc, err := s.catalog.GetService(ctx, *cmd.ServiceID)
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			verr.add("service_id", "refers to an unknown service")
		case err != nil:
			return err
		case !svc.Active:
			verr.add("service_id", "refers to an inactive service")
		default:
			offers, err := s.doctors.IsOfferingService(ctx, cmd.DoctorID, *cmd.ServiceID)
			if err != nil {
				return err
			}
			if !offers {
				verr.add("service_id", "is not offered by this doctor")
			}
		}
	}

	return verr.orNil()
}

// UpdateStatus moves an appointment through its lifecycle. The store update is
// conditional on the status read here, so of two racing transitions only one
// is applied and the other reports an invalid transition.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id int64, newStatus appointment.Status, actor Actor) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.UpdateStatus")
	defer span.End()

	newStatus, err := appointment.ParseStatus(string(newStatus))
	if err != nil {
		return nil, &ValidationError{Fields: []string{statusChoices}}
	}
	span.SetAttributes(attribute.Int64("appointment.id", id), attribute.String("status.to", string(newStatus)))

	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	if doctorID, scoped := actor.scopedDoctor(); scoped && a.DoctorID != doctorID {
		return nil, ErrForbidden
	}

	from := a.Status
	at := s.now()
	if err := a.TransitionTo(newStatus, at); err != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(newStatus), "rejected").Inc()
		return nil, err
	}

	if err := s.appointments.UpdateStatus(ctx, id, from, newStatus, at); err != nil {
		if errors.Is(err, appointment.ErrStatusChanged) {
			current, gerr := s.appointments.GetByID(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			s.metrics.StatusTransitions.WithLabelValues(string(newStatus), "rejected").Inc()
			return nil, &appointment.TransitionError{From: current.Status, To: newStatus}
		}
		spanError(span, err)
		s.log.Error("failed to update appointment status", zap.Int64("appointment_id", id), zap.Error(err))
		return nil, fmt.Errorf("updating appointment status: %w", err)
	}
	a.UpdatedAt = at

	s.metrics.StatusTransitions.WithLabelValues(string(newStatus), "applied").Inc()
	s.log.Info("appointment status changed",
		zap.Int64("appointment_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
	)

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   strconv.FormatInt(id, 10),
		Changes:      fmt.Sprintf(`{"status":{"from":%q,"to":%q}}`, from, newStatus),
	})

	return a, nil
}

// Get returns the joined projection of one appointment.
func (s *AppointmentService) Get(ctx context.Context, id int64, actor Actor) (*appointment.View, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Get")
	defer span.End()

	v, err := s.appointments.GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctorID, scoped := actor.scopedDoctor(); scoped && v.DoctorID != doctorID {
		return nil, ErrForbidden
	}
	return v, nil
}

// List returns appointments matching every filter present in q. Doctors only
// ever see their own schedule.
func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery, actor Actor) (*appointment.PagedAppointments, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.List")
	defer span.End()

	if q.Status != nil {
		status, err := appointment.ParseStatus(string(*q.Status))
		if err != nil {
			return nil, &ValidationError{Fields: []string{statusChoices}}
		}
		q.Status = &status
	}
	if doctorID, scoped := actor.scopedDoctor(); scoped {
		q.DoctorID = &doctorID
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.appointments.List(ctx, q)
}
