package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
)

type PatientRepository struct {
	base
}

func NewPatientRepository(db *gorm.DB, timeout time.Duration) *PatientRepository {
	return &PatientRepository{base: newBase(db, timeout)}
}

var _ patient.Repository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	if err := db.Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return patient.ErrPatientAlreadyExists
		}
		return unavailable("creating patient", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id int64) (*patient.Patient, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	return r.get(db, id)
}

func (r *PatientRepository) get(db *gorm.DB, id int64) (*patient.Patient, error) {
	var p patient.Patient
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, unavailable("getting patient", err)
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, id int64, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	updates := make(map[string]any)
	if cmd.FirstName != nil {
		updates["first_name"] = *cmd.FirstName
	}
	if cmd.LastName != nil {
		updates["last_name"] = *cmd.LastName
	}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.Email != nil {
		updates["email"] = *cmd.Email
	}
	if cmd.InsuranceID != nil {
		updates["insurance_id"] = *cmd.InsuranceID
	}

	if len(updates) > 0 {
		res := db.Model(&patient.Patient{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, unavailable("updating patient", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, patient.ErrPatientNotFound
		}
	}

	return r.get(db, id)
}

func (r *PatientRepository) Deactivate(ctx context.Context, id int64) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Model(&patient.Patient{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return unavailable("deactivating patient", res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	page, pageSize := normalizePage(q.Page, q.PageSize)

	tx := db.Model(&patient.Patient{})
	if !q.IncludeInactive {
		tx = tx.Where("active = ?", true)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(document) LIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, unavailable("counting patients", err)
	}

	patients := make([]*patient.Patient, 0, pageSize)
	err := tx.Order("last_name ASC, first_name ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&patients).Error
	if err != nil {
		return nil, unavailable("listing patients", err)
	}

	return &patient.PagedPatients{
		Patients:   patients,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (r *PatientRepository) ExistsByDocument(ctx context.Context, document string, excludeID *int64) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	tx := db.Model(&patient.Patient{}).Where("document = ?", document)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, unavailable("checking patient document", err)
	}
	return count > 0, nil
}
