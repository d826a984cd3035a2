package patient

import (
	"strings"
	"time"
)

type Patient struct {
	ID        int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`
	// National document number, unique per patient.
	Document string `gorm:"column:document;type:varchar(20);not null;uniqueIndex"`
	Phone    string `gorm:"column:phone;type:varchar(20)"`
	Email    string `gorm:"column:email;type:varchar(100)"`

	InsuranceID int64 `gorm:"column:insurance_id;not null;index"`

	// Patients are deactivated instead of deleted so appointment history stays intact.
	Active bool `gorm:"column:active;not null;default:true;index"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type CreatePatientCommand struct {
	FirstName   string
	LastName    string
	Document    string
	Phone       string
	Email       string
	InsuranceID int64
}

type UpdatePatientCommand struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	Email       *string
	InsuranceID *int64
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	Search          string // Substring match on first name, last name or document
	IncludeInactive bool
	Page            int
	PageSize        int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
