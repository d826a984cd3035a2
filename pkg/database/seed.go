package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/doctor"
)

var seedInsurances = []catalog.Insurance{
	{Name: "Insurance A", Description: "Basic insurance", Active: true},
	{Name: "Insurance B", Description: "Premium insurance", Active: true},
	{Name: "Insurance C", Description: "Family insurance", Active: true},
}

var seedServices = []catalog.Service{
	{Name: "General Consultation", Description: "General medical consultation", Active: true},
	{Name: "Cardiology", Description: "Cardiology specialty", Active: true},
	{Name: "Pediatrics", Description: "Pediatric care", Active: true},
	{Name: "Dermatology", Description: "Dermatology specialty", Active: true},
	{Name: "Neurology", Description: "Neurology specialty", Active: true},
}

type seedDoctor struct {
	doctor   doctor.Doctor
	services []string
}

var seedDoctors = []seedDoctor{
	{doctor.Doctor{FirstName: "Juan", LastName: "Pérez", Specialty: "General Medicine", Active: true},
		[]string{"General Consultation"}},
	{doctor.Doctor{FirstName: "María", LastName: "González", Specialty: "Cardiology", Active: true},
		[]string{"Cardiology", "General Consultation"}},
	{doctor.Doctor{FirstName: "Carlos", LastName: "Rodríguez", Specialty: "Pediatrics", Active: true},
		[]string{"Pediatrics", "General Consultation"}},
	{doctor.Doctor{FirstName: "Ana", LastName: "Martínez", Specialty: "Dermatology", Active: true},
		[]string{"Dermatology", "General Consultation"}},
}

// Seed loads the reference catalog and the starting doctors. Rows are matched by
// name, so running it again is a no-op.
func Seed(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ins := range seedInsurances {
			row := ins
			if err := tx.Where(catalog.Insurance{Name: row.Name}).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seeding insurance %q: %w", row.Name, err)
			}
		}

		serviceIDs := make(map[string]int64, len(seedServices))
		for _, svc := range seedServices {
			row := svc
			if err := tx.Where(catalog.Service{Name: row.Name}).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seeding service %q: %w", row.Name, err)
			}
			serviceIDs[row.Name] = row.ID
		}

		for _, sd := range seedDoctors {
			row := sd.doctor
			err := tx.Where(doctor.Doctor{FirstName: row.FirstName, LastName: row.LastName}).FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("seeding doctor %s: %w", row.FullName(), err)
			}
			for _, name := range sd.services {
				link := doctor.DoctorService{DoctorID: row.ID, ServiceID: serviceIDs[name]}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
					return fmt.Errorf("linking %s to %q: %w", row.FullName(), name, err)
				}
			}
		}

		log.Info("seed data loaded",
			zap.Int("insurances", len(seedInsurances)),
			zap.Int("services", len(seedServices)),
			zap.Int("doctors", len(seedDoctors)),
		)
		return nil
	})
}
