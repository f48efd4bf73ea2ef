package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin   = "admin"
	RoleHOD     = "hod"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);not null;default:'student'" json:"role"` // admin, hod, teacher, student
	DepartmentID *uint          `gorm:"index" json:"department_id,omitempty"`                    // required for every role except admin
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Student-specific fields
	AcademicYear string  `gorm:"type:varchar(9)" json:"academic_year,omitempty"` // e.g. "2024-2025"
	Semester     int     `json:"semester,omitempty"`
	RollNumber   *string `gorm:"uniqueIndex" json:"roll_number,omitempty"`

	// Staff-specific field (teacher/hod)
	EmployeeID *string `gorm:"uniqueIndex" json:"employee_id,omitempty"`

	// Relationships
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// IsStaff returns true for roles that carry an employee ID.
func (u *User) IsStaff() bool {
	return u.Role == RoleTeacher || u.Role == RoleHOD
}

// RequiresDepartment returns true when the role must reference a department.
func (u *User) RequiresDepartment() bool {
	return u.Role != RoleAdmin
}

// ValidRole checks a role against the allowed set.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleHOD, RoleTeacher, RoleStudent:
		return true
	}
	return false
}
