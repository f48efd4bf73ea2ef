package model

import (
	"time"

	"gorm.io/gorm"
)

// Department represents an academic department (e.g., Computer Science)
type Department struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Name           string         `gorm:"not null" json:"name"`
	Code           string         `gorm:"uniqueIndex;not null" json:"code"` // e.g. "CSE"
	Description    string         `gorm:"type:text" json:"description,omitempty"`
	HODID          *uint          `json:"hod_id,omitempty"` // at most one active HOD; mirrored by the HOD user's department
	TotalSemesters int            `gorm:"not null;default:8" json:"total_semesters"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	HOD      *User     `gorm:"foreignKey:HODID" json:"hod,omitempty"`
	Subjects []Subject `gorm:"foreignKey:DepartmentID" json:"subjects,omitempty"`
	Users    []User    `gorm:"foreignKey:DepartmentID" json:"-"`
}
