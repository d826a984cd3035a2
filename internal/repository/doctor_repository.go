package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
)

type DoctorRepository struct {
	base
}

func NewDoctorRepository(db *gorm.DB, timeout time.Duration) *DoctorRepository {
	return &DoctorRepository{base: newBase(db, timeout)}
}

var _ doctor.Repository = (*DoctorRepository)(nil)

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor, serviceIDs []int64) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return err
		}
		seen := make(map[int64]struct{}, len(serviceIDs))
		for _, sid := range serviceIDs {
			if _, dup := seen[sid]; dup {
				continue
			}
			seen[sid] = struct{}{}
			if err := tx.Create(&doctor.DoctorService{DoctorID: d.ID, ServiceID: sid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("creating doctor", err)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id int64) (*doctor.Doctor, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var d doctor.Doctor
	if err := db.First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, unavailable("getting doctor", err)
	}
	return &d, nil
}

func (r *DoctorRepository) List(ctx context.Context, q *doctor.ListDoctorsQuery) ([]*doctor.Doctor, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	tx := db.Model(&doctor.Doctor{})
	if q != nil {
		if q.ServiceID != nil {
			tx = tx.Where("id IN (?)", db.Model(&doctor.DoctorService{}).Select("doctor_id").Where("service_id = ?", *q.ServiceID))
		}
		if q.ActiveOnly {
			tx = tx.Where("active = ?", true)
		}
	}

	var doctors []*doctor.Doctor
	if err := tx.Order("id ASC").Find(&doctors).Error; err != nil {
		return nil, unavailable("listing doctors", err)
	}
	return doctors, nil
}

func (r *DoctorRepository) ListActiveByService(ctx context.Context, serviceID int64) ([]*doctor.Doctor, error) {
	return r.List(ctx, &doctor.ListDoctorsQuery{ServiceID: &serviceID, ActiveOnly: true})
}

func (r *DoctorRepository) IsOfferingService(ctx context.Context, doctorID, serviceID int64) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var count int64
	err := db.Model(&doctor.DoctorService{}).
		Where("doctor_id = ? AND service_id = ?", doctorID, serviceID).
		Count(&count).Error
	if err != nil {
		return false, unavailable("checking doctor service", err)
	}
	return count > 0, nil
}

func (r *DoctorRepository) AssignService(ctx context.Context, doctorID, serviceID int64) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	if err := db.Create(&doctor.DoctorService{DoctorID: doctorID, ServiceID: serviceID}).Error; err != nil {
		if isUniqueViolation(err) {
			return doctor.ErrServiceAlreadyAssigned
		}
		return unavailable("assigning service", err)
	}
	return nil
}
