package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
)

type DoctorService struct {
	repo     doctor.Repository
	catalog  catalog.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewDoctorService(repo doctor.Repository, catalogRepo catalog.Repository, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, catalog: catalogRepo, auditSvc: auditSvc, log: log}
}

func (s *DoctorService) CreateDoctor(ctx context.Context, cmd *doctor.CreateDoctorCommand, actor Actor) (*doctor.Doctor, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(cmd.FirstName) == "" {
		verr.add("first_name", "is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		verr.add("last_name", "is required")
	}
	if email := strings.TrimSpace(cmd.Email); email != "" && !validEmail(strings.ToLower(email)) {
		verr.add("email", "is not a valid address")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	for _, sid := range cmd.ServiceIDs {
		if err := s.checkService(ctx, sid); err != nil {
			return nil, err
		}
	}

	d := &doctor.Doctor{
		FirstName: strings.TrimSpace(cmd.FirstName),
		LastName:  strings.TrimSpace(cmd.LastName),
		Specialty: strings.TrimSpace(cmd.Specialty),
		Phone:     strings.TrimSpace(cmd.Phone),
		Email:     strings.ToLower(strings.TrimSpace(cmd.Email)),
		Active:    true,
	}
	if err := s.repo.Create(ctx, d, cmd.ServiceIDs); err != nil {
		s.log.Error("failed to create doctor", zap.Error(err))
		return nil, fmt.Errorf("creating doctor: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "doctor",
		ResourceID:   strconv.FormatInt(d.ID, 10),
	})
	s.log.Info("doctor created", zap.Int64("doctor_id", d.ID), zap.Int("services", len(cmd.ServiceIDs)))

	return d, nil
}

func (s *DoctorService) GetDoctor(ctx context.Context, id int64) (*doctor.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorService) ListDoctors(ctx context.Context, q *doctor.ListDoctorsQuery) ([]*doctor.Doctor, error) {
	return s.repo.List(ctx, q)
}

// AssignService records that a doctor offers a service, making them bookable for it.
func (s *DoctorService) AssignService(ctx context.Context, doctorID, serviceID int64, actor Actor) error {
	if _, err := s.repo.GetByID(ctx, doctorID); err != nil {
		return err
	}
	if err := s.checkService(ctx, serviceID); err != nil {
		return err
	}

	if err := s.repo.AssignService(ctx, doctorID, serviceID); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "doctor",
		ResourceID:   strconv.FormatInt(doctorID, 10),
		Changes:      fmt.Sprintf(`{"service_added":%d}`, serviceID),
	})
	return nil
}

func (s *DoctorService) checkService(ctx context.Context, id int64) error {
	svc, err := s.catalog.GetService(ctx, id)
	if errors.Is(err, catalog.ErrServiceNotFound) {
		return &ValidationError{Fields: []string{"service_ids contains unknown service " + strconv.FormatInt(id, 10)}}
	}
	if err != nil {
		return err
	}
	if !svc.Active {
		return &ValidationError{Fields: []string{"service_ids contains inactive service " + strconv.FormatInt(id, 10)}}
	}
	return nil
}
