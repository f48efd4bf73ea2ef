package model

import (
	"time"

	"gorm.io/gorm"
)

// Subject represents an individual academic subject taught in a department
type Subject struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Code         string         `gorm:"not null;uniqueIndex:idx_subject_scope" json:"code"`
	DepartmentID uint           `gorm:"not null;index;uniqueIndex:idx_subject_scope" json:"department_id"`
	Semester     int            `gorm:"not null;uniqueIndex:idx_subject_scope" json:"semester"`
	AcademicYear string         `gorm:"type:varchar(9);not null;uniqueIndex:idx_subject_scope" json:"academic_year"`
	Credits      int            `gorm:"not null;default:4" json:"credits"` // 1-10
	Description  string         `gorm:"type:text" json:"description,omitempty"`
	TeacherID    *uint          `gorm:"index" json:"teacher_id,omitempty"` // must belong to the same department
	MaxMarks     int            `gorm:"not null;default:300" json:"max_marks"`
	PassingMarks int            `gorm:"not null;default:120" json:"passing_marks"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	Department    *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Teacher       *User       `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Prerequisites []Subject   `gorm:"many2many:subject_prerequisites" json:"prerequisites,omitempty"` // informational only, same department
	Grades        []Grade     `gorm:"foreignKey:SubjectID" json:"-"`
}
