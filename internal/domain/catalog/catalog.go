// Package catalog holds the clinic's reference data: medical services offered
// by doctors and the insurance plans patients are enrolled in.
package catalog

type Service struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"column:name;type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"column:description;type:varchar(500)"`
	Active      bool   `gorm:"column:active;not null;default:true"`
}

func (Service) TableName() string {
	return "services"
}

type Insurance struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"column:name;type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"column:description;type:varchar(500)"`
	Active      bool   `gorm:"column:active;not null;default:true"`
}

func (Insurance) TableName() string {
	return "insurances"
}
