package models

import (
	"time"

	"gorm.io/gorm"
)

// Employee is the read side of the staff directory. Sales staff and CS
// agents that can earn commissions live here.
type Employee struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeName string         `gorm:"type:varchar(128);not null" json:"employee_name"`
	Position     string         `gorm:"column:position;type:varchar(64)" json:"position"`
	Department   string         `gorm:"type:varchar(64);index" json:"department"`
	Phone        string         `gorm:"type:varchar(32)" json:"phone"`
	Email        string         `gorm:"type:varchar(128)" json:"email"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	CreatedAt    *time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    *time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Employee) TableName() string {
	return "employees"
}
