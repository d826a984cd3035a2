package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
)

// CatalogService manages medical services and insurance plans.
type CatalogService struct {
	repo     catalog.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewCatalogService(repo catalog.Repository, auditSvc *AuditService, log *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, auditSvc: auditSvc, log: log}
}

type CreateCatalogEntryCommand struct {
	Name        string
	Description string
}

func (c *CreateCatalogEntryCommand) validate() error {
	verr := &ValidationError{}
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if c.Name == "" {
		verr.add("name", "is required")
	} else if len(c.Name) > 100 {
		verr.add("name", "must be at most 100 characters")
	}
	if len(c.Description) > 500 {
		verr.add("description", "must be at most 500 characters")
	}
	return verr.orNil()
}

func (s *CatalogService) ListServices(ctx context.Context, activeOnly bool) ([]*catalog.Service, error) {
	return s.repo.ListServices(ctx, activeOnly)
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*catalog.Service, error) {
	return s.repo.GetService(ctx, id)
}

func (s *CatalogService) CreateService(ctx context.Context, cmd *CreateCatalogEntryCommand, actor Actor) (*catalog.Service, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	svc := &catalog.Service{Name: cmd.Name, Description: cmd.Description, Active: true}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "service",
		ResourceID:   strconv.FormatInt(svc.ID, 10),
	})
	return svc, nil
}

func (s *CatalogService) ListInsurances(ctx context.Context, activeOnly bool) ([]*catalog.Insurance, error) {
	return s.repo.ListInsurances(ctx, activeOnly)
}

func (s *CatalogService) CreateInsurance(ctx context.Context, cmd *CreateCatalogEntryCommand, actor Actor) (*catalog.Insurance, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	ins := &catalog.Insurance{Name: cmd.Name, Description: cmd.Description, Active: true}
	if err := s.repo.CreateInsurance(ctx, ins); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "insurance",
		ResourceID:   strconv.FormatInt(ins.ID, 10),
	})
	return ins, nil
}
