package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
)

type AppointmentRepository struct {
	base
}

func NewAppointmentRepository(db *gorm.DB, timeout time.Duration) *AppointmentRepository {
	return &AppointmentRepository{base: newBase(db, timeout)}
}

var _ appointment.Repository = (*AppointmentRepository)(nil)

func (r *AppointmentRepository) FindScheduled(ctx context.Context, doctorID int64, date time.Time) ([]appointment.Booked, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []struct {
		ID       int64  `gorm:"column:id"`
		SlotTime string `gorm:"column:slot_time"`
	}
	err := db.Model(&appointment.Appointment{}).
		Select("id, slot_time").
		Where("doctor_id = ? AND slot_date = ? AND status = ?", doctorID, appointment.NormalizeDate(date), appointment.StatusScheduled).
		Order("slot_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, unavailable("finding scheduled appointments", err)
	}

	booked := make([]appointment.Booked, 0, len(rows))
	for _, row := range rows {
		booked = append(booked, appointment.Booked{AppointmentID: row.ID, Time: row.SlotTime})
	}
	return booked, nil
}

// InsertIfSlotFree relies on ux_appointments_slot_scheduled: the insert either
// commits or fails on the index, with no read-then-write window in between.
func (r *AppointmentRepository) InsertIfSlotFree(ctx context.Context, a *appointment.Appointment) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	a.Date = appointment.NormalizeDate(a.Date)
	if a.Status == "" {
		a.Status = appointment.StatusScheduled
	}

	if err := db.Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return &appointment.SlotConflictError{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
		}
		return unavailable("inserting appointment", err)
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, from, to appointment.Status, at time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case appointment.StatusCompleted:
		updates["completed_at"] = at
	case appointment.StatusCancelled:
		updates["cancelled_at"] = at
	}

	res := db.Model(&appointment.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return unavailable("updating appointment status", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&appointment.Appointment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return unavailable("checking appointment", err)
	}
	if count == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return appointment.ErrStatusChanged
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var a appointment.Appointment
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, unavailable("getting appointment", err)
	}
	return &a, nil
}

const viewColumns = `a.id, a.patient_id, p.first_name || ' ' || p.last_name AS patient_name,
	a.doctor_id, d.first_name || ' ' || d.last_name AS doctor_name,
	a.service_id, COALESCE(s.name, '') AS service_name,
	a.slot_date AS "date", a.slot_time AS "time", a.status, a.created_at`

func (r *AppointmentRepository) viewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("appointments AS a").
		Joins("JOIN patients p ON p.id = a.patient_id").
		Joins("JOIN doctors d ON d.id = a.doctor_id").
		Joins("LEFT JOIN services s ON s.id = a.service_id")
}

func (r *AppointmentRepository) GetView(ctx context.Context, id int64) (*appointment.View, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var views []*appointment.View
	err := r.viewQuery(db).
		Select(viewColumns).
		Where("a.id = ?", id).
		Limit(1).
		Scan(&views).Error
	if err != nil {
		return nil, unavailable("getting appointment view", err)
	}
	if len(views) == 0 {
		return nil, appointment.ErrAppointmentNotFound
	}
	return views[0], nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	page, pageSize := normalizePage(q.Page, q.PageSize)

	filters := func(tx *gorm.DB) *gorm.DB {
		if q.Date != nil {
			tx = tx.Where("a.slot_date = ?", appointment.NormalizeDate(*q.Date))
		}
		if q.DoctorID != nil {
			tx = tx.Where("a.doctor_id = ?", *q.DoctorID)
		}
		if q.PatientID != nil {
			tx = tx.Where("a.patient_id = ?", *q.PatientID)
		}
		if q.Status != nil {
			tx = tx.Where("a.status = ?", *q.Status)
		}
		return tx
	}

	var total int64
	if err := r.viewQuery(db).Scopes(filters).Count(&total).Error; err != nil {
		return nil, unavailable("counting appointments", err)
	}

	views := make([]*appointment.View, 0, pageSize)
	err := r.viewQuery(db).
		Scopes(filters).
		Select(viewColumns).
		Order("a.slot_date ASC, a.slot_time ASC, a.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&views).Error
	if err != nil {
		return nil, unavailable("listing appointments", err)
	}

	return &appointment.PagedAppointments{
		Appointments: views,
		TotalCount:   total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages(total, pageSize),
	}, nil
}
