package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
)

type CatalogRepository struct {
	base
}

func NewCatalogRepository(db *gorm.DB, timeout time.Duration) *CatalogRepository {
	return &CatalogRepository{base: newBase(db, timeout)}
}

var _ catalog.Repository = (*CatalogRepository)(nil)

func (r *CatalogRepository) GetService(ctx context.Context, id int64) (*catalog.Service, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var s catalog.Service
	if err := db.First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, unavailable("getting service", err)
	}
	return &s, nil
}

func (r *CatalogRepository) ListServices(ctx context.Context, activeOnly bool) ([]*catalog.Service, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	tx := db.Model(&catalog.Service{})
	if activeOnly {
		tx = tx.Where("active = ?", true)
	}

	var services []*catalog.Service
	if err := tx.Order("id ASC").Find(&services).Error; err != nil {
		return nil, unavailable("listing services", err)
	}
	return services, nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, s *catalog.Service) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	if err := db.Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateName
		}
		return unavailable("creating service", err)
	}
	return nil
}

func (r *CatalogRepository) GetInsurance(ctx context.Context, id int64) (*catalog.Insurance, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var i catalog.Insurance
	if err := db.First(&i, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrInsuranceNotFound
		}
		return nil, unavailable("getting insurance", err)
	}
	return &i, nil
}

func (r *CatalogRepository) ListInsurances(ctx context.Context, activeOnly bool) ([]*catalog.Insurance, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	tx := db.Model(&catalog.Insurance{})
	if activeOnly {
		tx = tx.Where("active = ?", true)
	}

	var insurances []*catalog.Insurance
	if err := tx.Order("id ASC").Find(&insurances).Error; err != nil {
		return nil, unavailable("listing insurances", err)
	}
	return insurances, nil
}

func (r *CatalogRepository) CreateInsurance(ctx context.Context, i *catalog.Insurance) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	if err := db.Create(i).Error; err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateName
		}
		return unavailable("creating insurance", err)
	}
	return nil
}
