package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
)

type AuditRepository struct {
	base
}

func NewAuditRepository(db *gorm.DB, timeout time.Duration) *AuditRepository {
	return &AuditRepository{base: newBase(db, timeout)}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := db.Create(entry).Error; err != nil {
		return unavailable("writing audit log", err)
	}
	return nil
}
