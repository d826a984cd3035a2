package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

type PatientService struct {
	repo     patient.Repository
	catalog  catalog.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, catalogRepo catalog.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:     repo,
		catalog:  catalogRepo,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
	}
}

func (s *PatientService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand, actor Actor) (*patient.Patient, error) {
	ctx, span := tracer.Start(ctx, "PatientService.CreatePatient")
	defer span.End()

	if err := validateCreateCommand(cmd); err != nil {
		return nil, err
	}
	if err := s.checkInsurance(ctx, cmd.InsuranceID); err != nil {
		return nil, err
	}

	document := strings.TrimSpace(cmd.Document)
	exists, err := s.repo.ExistsByDocument(ctx, document, nil)
	if err != nil {
		s.log.Error("failed to check document uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	p := &patient.Patient{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		Document:    document,
		Phone:       strings.TrimSpace(cmd.Phone),
		Email:       strings.ToLower(strings.TrimSpace(cmd.Email)),
		InsuranceID: cmd.InsuranceID,
		Active:      true,
	}

	// The unique index still catches a concurrent create with the same document.
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, patient.ErrPatientAlreadyExists) {
			return nil, err
		}
		spanError(span, err)
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.metrics.PatientsCreated.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   strconv.FormatInt(p.ID, 10),
	})

	s.log.Info("patient created",
		zap.Int64("patient_id", p.ID),
		logger.Masked("document", p.Document),
		zap.String("created_by", actor.UserID.String()),
	)

	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id int64) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PatientService) UpdatePatient(ctx context.Context, id int64, cmd *patient.UpdatePatientCommand, actor Actor) (*patient.Patient, error) {
	ctx, span := tracer.Start(ctx, "PatientService.UpdatePatient")
	defer span.End()

	verr := &ValidationError{}
	if cmd.FirstName != nil {
		*cmd.FirstName = strings.TrimSpace(*cmd.FirstName)
		if *cmd.FirstName == "" {
			verr.add("first_name", "cannot be empty")
		}
	}
	if cmd.LastName != nil {
		*cmd.LastName = strings.TrimSpace(*cmd.LastName)
		if *cmd.LastName == "" {
			verr.add("last_name", "cannot be empty")
		}
	}
	if cmd.Email != nil {
		*cmd.Email = strings.ToLower(strings.TrimSpace(*cmd.Email))
		if !validEmail(*cmd.Email) {
			verr.add("email", "is not a valid address")
		}
	}
	if cmd.Phone != nil {
		*cmd.Phone = strings.TrimSpace(*cmd.Phone)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if cmd.InsuranceID != nil {
		if err := s.checkInsurance(ctx, *cmd.InsuranceID); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   strconv.FormatInt(id, 10),
	})

	return p, nil
}

// DeactivatePatient hides the patient from listings and blocks new bookings.
// Existing appointments are left untouched.
func (s *PatientService) DeactivatePatient(ctx context.Context, id int64, actor Actor) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "patient",
		ResourceID:   strconv.FormatInt(id, 10),
	})

	return nil
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	return s.repo.List(ctx, q)
}

// checkInsurance turns an unknown or retired plan into a validation error on insurance_id.
func (s *PatientService) checkInsurance(ctx context.Context, id int64) error {
	ins, err := s.catalog.GetInsurance(ctx, id)
	if errors.Is(err, catalog.ErrInsuranceNotFound) {
		return &ValidationError{Fields: []string{"insurance_id refers to an unknown insurance"}}
	}
	if err != nil {
		return err
	}
	if !ins.Active {
		return &ValidationError{Fields: []string{"insurance_id refers to an inactive insurance"}}
	}
	return nil
}

func validateCreateCommand(cmd *patient.CreatePatientCommand) error {
	verr := &ValidationError{}

	if strings.TrimSpace(cmd.FirstName) == "" {
		verr.add("first_name", "is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		verr.add("last_name", "is required")
	}
	if strings.TrimSpace(cmd.Document) == "" {
		verr.add("document", "is required")
	} else if len(strings.TrimSpace(cmd.Document)) > 20 {
		verr.add("document", "must be at most 20 characters")
	}
	if email := strings.TrimSpace(cmd.Email); email != "" && !validEmail(email) {
		verr.add("email", "is not a valid address")
	}
	if cmd.InsuranceID <= 0 {
		verr.add("insurance_id", "is required")
	}

	return verr.orNil()
}

func validEmail(email string) bool {
	if email == "" {
		return true
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
