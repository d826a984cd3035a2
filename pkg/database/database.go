package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
)

// SlotIndexName is the partial unique index that makes double booking impossible.
const SlotIndexName = "ux_appointments_slot_scheduled"

func Connect(cfg config.DatabaseConfig, log *zap.Logger, m *metrics.Collector) (*gorm.DB, error) {
	db, err := Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), log, cfg.SlowQueryThreshold, m)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := Ping(context.Background(), db, cfg.QueryTimeout); err != nil {
		return nil, err
	}

	return db, nil
}

// Open builds a *gorm.DB for any dialector with the service's logging, error
// translation and query metrics applied. m may be nil.
func Open(dialector gorm.Dialector, log *zap.Logger, slowThreshold time.Duration, m *metrics.Collector) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         NewGormLogger(log, slowThreshold),
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	if m != nil {
		if err := registerMetricsCallbacks(db, m); err != nil {
			return nil, fmt.Errorf("registering metrics callbacks: %w", err)
		}
	}

	return db, nil
}

// Ping checks connectivity within timeout. Used at startup and by /readyz.
func Ping(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: pinging database: %w", domain.ErrUnavailable, err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&catalog.Insurance{},
		&catalog.Service{},
		&doctor.Doctor{},
		&doctor.DoctorService{},
		&patient.Patient{},
		&appointment.Appointment{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createIndexes adds the indexes GORM tags cannot express. The statements are
// valid in both PostgreSQL and SQLite.
func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			// Only scheduled rows hold a slot; cancelled and completed ones free it.
			name:  SlotIndexName,
			query: `CREATE UNIQUE INDEX IF NOT EXISTS ux_appointments_slot_scheduled ON appointments (doctor_id, slot_date, slot_time) WHERE status = 'scheduled'`,
		},
		{
			name:  "idx_appointments_listing",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_listing ON appointments (slot_date, slot_time, id)`,
		},
		{
			name:  "idx_patients_name",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name ON patients (last_name, first_name) WHERE active`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
	}

	return nil
}
