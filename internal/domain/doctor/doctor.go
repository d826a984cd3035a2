package doctor

import (
	"strings"
)

type Doctor struct {
	ID        int64  `gorm:"primaryKey"`
	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`
	Specialty string `gorm:"column:specialty;type:varchar(50)"`
	Phone     string `gorm:"column:phone;type:varchar(20)"`
	Email     string `gorm:"column:email;type:varchar(100)"`
	Active    bool   `gorm:"column:active;not null;default:true;index"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// DoctorService links a doctor to a medical service they offer.
type DoctorService struct {
	ID        int64 `gorm:"primaryKey"`
	DoctorID  int64 `gorm:"column:doctor_id;not null;uniqueIndex:ux_doctor_services_pair"`
	ServiceID int64 `gorm:"column:service_id;not null;uniqueIndex:ux_doctor_services_pair;index"`
}

func (DoctorService) TableName() string {
	return "doctor_services"
}

type CreateDoctorCommand struct {
	FirstName  string
	LastName   string
	Specialty  string
	Phone      string
	Email      string
	ServiceIDs []int64
}

type ListDoctorsQuery struct {
	ServiceID  *int64
	ActiveOnly bool
}
