package auth

import (
	"time"

	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/auth"
	"github.com/acadex/acadex-api/utils/middleware"
)

// AuthHandler handles login, logout, token refresh and profile endpoints
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *auth.JWTManager
	blacklistService     *auth.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *auth.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		blacklistService:     auth.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
	}
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	DepartmentID *uint     `json:"department_id,omitempty"`
	AcademicYear string    `json:"academic_year,omitempty"`
	Semester     int       `json:"semester,omitempty"`
	RollNumber   *string   `json:"roll_number,omitempty"`
	EmployeeID   *string   `json:"employee_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUserResponse maps a user row to its public view
func NewUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		AcademicYear: user.AcademicYear,
		Semester:     user.Semester,
		RollNumber:   user.RollNumber,
		EmployeeID:   user.EmployeeID,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
