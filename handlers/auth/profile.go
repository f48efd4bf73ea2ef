package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/auth"
	"github.com/acadex/acadex-api/utils/middleware"
	"github.com/acadex/acadex-api/utils/response"
)

// UpdateProfileRequest carries the self-editable profile fields
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"omitempty,min=2,max=100"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// GetProfile returns the authenticated user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user := middleware.ActorFromContext(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	// Reload with department for the full view
	var fresh model.User
	if err := h.db.Preload("Department").First(&fresh, user.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to load profile")
	}

	res := NewUserResponse(&fresh)
	return response.Success(c, fiber.Map{
		"user":       res,
		"department": fresh.Department,
	})
}

// UpdateProfile updates the self-editable profile fields. Role, department and
// identifiers are admin-managed and cannot be changed here.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user := middleware.ActorFromContext(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Name == "" {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := h.db.Model(&model.User{}).Where("id = ?", user.ID).Update("name", req.Name).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	var fresh model.User
	if err := h.db.First(&fresh, user.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to load profile")
	}

	return response.Success(c, NewUserResponse(&fresh))
}

// ChangePassword verifies the current password, stores the new hash and
// invalidates every outstanding token for the user.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.ActorFromContext(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	if !auth.IsPasswordValid(req.NewPassword) {
		return response.BadRequest(c, "New password must be at least 8 characters")
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to hash password")
	}

	if err := h.db.Model(&model.User{}).Where("id = ?", user.ID).Update("password_hash", passwordHash).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	// Bumping the token version forces re-login everywhere
	if err := h.blacklistService.RevokeAllUserTokens(c.Context(), user.ID); err != nil {
		return response.InternalServerError(c, "Failed to invalidate existing sessions")
	}

	return response.Success(c, fiber.Map{
		"message": "Password changed successfully. Please log in again.",
	})
}
