package department

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/services"
	"github.com/acadex/acadex-api/utils/middleware"
	"github.com/acadex/acadex-api/utils/response"
	"github.com/acadex/acadex-api/utils/validation"
)

// DepartmentHandler handles department-related requests
type DepartmentHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	audit     *services.AuditService
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(db *gorm.DB, audit *services.AuditService) *DepartmentHandler {
	return &DepartmentHandler{
		db:        db,
		validator: validation.NewValidator(),
		audit:     audit,
	}
}

// CreateDepartmentRequest represents the request body for creating a department
type CreateDepartmentRequest struct {
	Name           string `json:"name" validate:"required,min=3,max=255"`
	Code           string `json:"code" validate:"required,min=2,max=20"`
	Description    string `json:"description" validate:"omitempty,max=1000"`
	TotalSemesters int    `json:"total_semesters" validate:"omitempty,gte=1,lte=12"`
}

// UpdateDepartmentRequest represents the request body for updating a department
type UpdateDepartmentRequest struct {
	Name           string `json:"name" validate:"omitempty,min=3,max=255"`
	Description    string `json:"description" validate:"omitempty,max=1000"`
	TotalSemesters int    `json:"total_semesters" validate:"omitempty,gte=1,lte=12"`
	IsActive       *bool  `json:"is_active"`
}

// AssignHODRequest represents the request body for assigning a department head.
// A null user_id clears the assignment.
type AssignHODRequest struct {
	UserID *uint `json:"user_id"`
}

// ListDepartments handles GET /api/v1/departments
func (h *DepartmentHandler) ListDepartments(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")
	isActive := c.Query("is_active", "")

	query := h.db.Model(&model.Department{})

	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if isActive == "true" {
		query = query.Where("is_active = ?", true)
	} else if isActive == "false" {
		query = query.Where("is_active = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count departments")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var departments []model.Department
	if err := query.Preload("HOD").
		Order("code ASC").
		Limit(limit).
		Offset(offset).
		Find(&departments).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch departments")
	}

	return response.Paginated(c, departments, pagination)
}

// GetDepartment handles GET /api/v1/departments/:id
func (h *DepartmentHandler) GetDepartment(c *fiber.Ctx) error {
	id := c.Params("id")

	var dept model.Department
	if err := h.db.Preload("HOD").Preload("Subjects").First(&dept, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	return response.Success(c, dept)
}

// CreateDepartment handles POST /api/v1/departments (admin only)
func (h *DepartmentHandler) CreateDepartment(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Code = validation.SanitizeString(req.Code)

	var existing model.Department
	if err := h.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return response.Conflict(c, "Department with this code already exists")
	}

	totalSemesters := req.TotalSemesters
	if totalSemesters == 0 {
		totalSemesters = 8
	}

	dept := model.Department{
		Name:           req.Name,
		Code:           req.Code,
		Description:    req.Description,
		TotalSemesters: totalSemesters,
		IsActive:       true,
	}
	if err := h.db.Create(&dept).Error; err != nil {
		return response.InternalServerError(c, "Failed to create department")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditDepartmentCreate, "department", dept.ID, map[string]interface{}{
		"code": dept.Code,
	})

	return response.Created(c, dept)
}

// UpdateDepartment handles PUT /api/v1/departments/:id (admin only)
func (h *DepartmentHandler) UpdateDepartment(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var dept model.Department
	if err := h.db.First(&dept, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	var req UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = validation.SanitizeString(req.Name)
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.TotalSemesters != 0 {
		updates["total_semesters"] = req.TotalSemesters
	}

	if req.IsActive != nil && !*req.IsActive && dept.IsActive {
		// Deactivation is refused while active users still belong here
		var activeUsers int64
		if err := h.db.Model(&model.User{}).
			Where("department_id = ? AND is_active = ?", dept.ID, true).
			Count(&activeUsers).Error; err != nil {
			return response.InternalServerError(c, "Failed to check department users")
		}
		if activeUsers > 0 {
			return response.Conflict(c, "Department still has active users")
		}
		updates["is_active"] = false
	} else if req.IsActive != nil && *req.IsActive {
		updates["is_active"] = true
	}

	if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := h.db.Model(&dept).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update department")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditDepartmentUpdate, "department", dept.ID, nil)

	if err := h.db.Preload("HOD").First(&dept, dept.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload department")
	}
	return response.Success(c, dept)
}

// AssignHOD handles PUT /api/v1/departments/:id/hod (admin only). The user
// must be an active HOD in this department; the link is written on both sides
// inside one transaction. A null user_id clears the current assignment.
func (h *DepartmentHandler) AssignHOD(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var dept model.Department
	if err := h.db.First(&dept, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	var req AssignHODRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.UserID == nil {
		if err := h.db.Model(&model.Department{}).Where("id = ?", dept.ID).Update("hod_id", nil).Error; err != nil {
			return response.InternalServerError(c, "Failed to clear HOD")
		}

		h.audit.Log(c.Context(), &actor.ID, model.AuditHODAssign, "department", dept.ID, map[string]interface{}{
			"hod_id": nil,
		})

		if err := h.db.First(&dept, dept.ID).Error; err != nil {
			return response.InternalServerError(c, "Failed to reload department")
		}
		return response.Success(c, dept)
	}

	var user model.User
	if err := h.db.First(&user, *req.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if user.Role != model.RoleHOD {
		return response.Error(c, fiber.StatusUnprocessableEntity, "User is not an HOD", "INVALID_HOD")
	}
	if !user.IsActive {
		return response.Error(c, fiber.StatusUnprocessableEntity, "User is not active", "INVALID_HOD")
	}
	if user.DepartmentID == nil || *user.DepartmentID != dept.ID {
		return response.Error(c, fiber.StatusUnprocessableEntity, "User belongs to a different department", "INVALID_HOD")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Department{}).Where("id = ?", dept.ID).Update("hod_id", user.ID).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", user.ID).Update("department_id", dept.ID).Error
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to assign HOD")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditHODAssign, "department", dept.ID, map[string]interface{}{
		"hod_id": user.ID,
	})

	if err := h.db.Preload("HOD").First(&dept, dept.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload department")
	}
	return response.Success(c, dept)
}

// DeleteDepartment handles DELETE /api/v1/departments/:id (admin only). A
// department with users or subjects is never deleted, only deactivated.
func (h *DepartmentHandler) DeleteDepartment(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var dept model.Department
	if err := h.db.First(&dept, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}

	var users int64
	if err := h.db.Model(&model.User{}).Where("department_id = ?", dept.ID).Count(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to check department users")
	}
	if users > 0 {
		return response.Conflict(c, "Department still has users")
	}

	var subjects int64
	if err := h.db.Model(&model.Subject{}).Where("department_id = ?", dept.ID).Count(&subjects).Error; err != nil {
		return response.InternalServerError(c, "Failed to check department subjects")
	}
	if subjects > 0 {
		return response.Conflict(c, "Department still has subjects")
	}

	if err := h.db.Delete(&dept).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete department")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditDepartmentDelete, "department", dept.ID, map[string]interface{}{
		"code": dept.Code,
	})

	return response.Success(c, fiber.Map{
		"message": "Department deleted successfully",
	})
}
