package user

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/services"
	"github.com/acadex/acadex-api/utils/auth"
	"github.com/acadex/acadex-api/utils/middleware"
	"github.com/acadex/acadex-api/utils/response"
	"github.com/acadex/acadex-api/utils/validation"
)

// UserHandler handles user management requests
type UserHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	audit     *services.AuditService
}

// NewUserHandler creates a new user handler
func NewUserHandler(db *gorm.DB, audit *services.AuditService) *UserHandler {
	return &UserHandler{
		db:        db,
		validator: validation.NewValidator(),
		audit:     audit,
	}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=100"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Role         string  `json:"role" validate:"required,oneof=admin hod teacher student"`
	DepartmentID *uint   `json:"department_id"`
	AcademicYear string  `json:"academic_year" validate:"omitempty,academic_year"`
	Semester     int     `json:"semester" validate:"omitempty,gte=1,lte=8"`
	RollNumber   *string `json:"roll_number"`
	EmployeeID   *string `json:"employee_id"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name         string `json:"name" validate:"omitempty,min=2,max=100"`
	DepartmentID *uint  `json:"department_id"`
	AcademicYear string `json:"academic_year" validate:"omitempty,academic_year"`
	Semester     int    `json:"semester" validate:"omitempty,gte=1,lte=8"`
	IsActive     *bool  `json:"is_active"`
}

// buildUser validates role-specific invariants and returns the user row to
// insert. Departments must exist and be active for every role except admin.
func (h *UserHandler) buildUser(req CreateUserRequest) (*model.User, error) {
	req.Name = validation.SanitizeString(req.Name)
	req.Email = validation.SanitizeString(req.Email)

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		RollNumber:   req.RollNumber,
		EmployeeID:   req.EmployeeID,
		IsActive:     true,
	}

	if user.RequiresDepartment() {
		if req.DepartmentID == nil {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "department_id is required for this role")
		}
		var dept model.Department
		if err := h.db.First(&dept, *req.DepartmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fiber.NewError(fiber.StatusNotFound, "Department not found")
			}
			return nil, err
		}
		if !dept.IsActive {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "Department is not active")
		}
	}

	switch req.Role {
	case model.RoleStudent:
		if req.RollNumber == nil || *req.RollNumber == "" {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "roll_number is required for students")
		}
		if req.AcademicYear == "" {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "academic_year is required for students")
		}
		if req.Semester < 1 || req.Semester > 8 {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "semester must be between 1 and 8")
		}
		user.EmployeeID = nil
	case model.RoleTeacher, model.RoleHOD:
		if req.EmployeeID == nil || *req.EmployeeID == "" {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "employee_id is required for staff")
		}
		user.RollNumber = nil
	default:
		user.RollNumber = nil
		user.EmployeeID = nil
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	user.PasswordHash = passwordHash

	return user, nil
}

// CreateUser handles POST /api/v1/users (admin only)
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	// Check for duplicate email first for a clean conflict message
	var existing model.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return response.Conflict(c, "User with this email already exists")
	}

	user, err := h.buildUser(req)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return response.Error(c, fe.Code, fe.Message, "USER_INVALID")
		}
		return response.InternalServerError(c, "Failed to create user")
	}

	if err := h.db.Create(user).Error; err != nil {
		return response.Conflict(c, "User conflicts with an existing record")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditUserCreate, "user", user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	return response.Created(c, user)
}

// ListUsers handles GET /api/v1/users. Results are scoped to what the actor
// may see: admins get everything, HODs and teachers their own department.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	role := c.Query("role", "")
	search := c.Query("search", "")
	departmentID := c.Query("department_id", "")

	query := h.db.Model(&model.User{})

	switch actor.Role {
	case model.RoleAdmin:
		// No scoping
	case model.RoleHOD, model.RoleTeacher:
		if actor.DepartmentID == nil {
			return response.Forbidden(c, "No department assigned")
		}
		query = query.Where("department_id = ?", *actor.DepartmentID)
		if actor.Role == model.RoleTeacher {
			query = query.Where("role = ?", model.RoleStudent)
		}
	default:
		return response.Forbidden(c, "Insufficient permissions")
	}

	if role != "" {
		query = query.Where("role = ?", role)
	}
	if departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}
	if search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ? OR roll_number ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var users []model.User
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, pagination)
}

// GetUser handles GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var user model.User
	if err := h.db.Preload("Department").First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if !services.CanAccess(actor, services.ActionRead, services.UserResource(&user)) {
		return response.Forbidden(c, "Not allowed to view this user")
	}

	return response.Success(c, user)
}

// UpdateUser handles PUT /api/v1/users/:id (admin only)
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var user model.User
	if err := h.db.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	var req UpdateUserRequest
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
	if req.DepartmentID != nil {
		var dept model.Department
		if err := h.db.First(&dept, *req.DepartmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return response.NotFound(c, "Department not found")
			}
			return response.InternalServerError(c, "Failed to fetch department")
		}
		if !dept.IsActive {
			return response.Error(c, fiber.StatusUnprocessableEntity, "Department is not active", "DEPARTMENT_INACTIVE")
		}
		updates["department_id"] = *req.DepartmentID
	}
	if req.AcademicYear != "" {
		updates["academic_year"] = req.AcademicYear
	}
	if req.Semester != 0 {
		updates["semester"] = req.Semester
	}

	if req.IsActive != nil && *req.IsActive != user.IsActive {
		if !*req.IsActive {
			if user.ID == actor.ID {
				return response.Conflict(c, "Cannot deactivate your own account")
			}
			if user.Role == model.RoleAdmin {
				var activeAdmins int64
				if err := h.db.Model(&model.User{}).
					Where("role = ? AND is_active = ? AND id <> ?", model.RoleAdmin, true, user.ID).
					Count(&activeAdmins).Error; err != nil {
					return response.InternalServerError(c, "Failed to check admin count")
				}
				if activeAdmins == 0 {
					return response.Conflict(c, "Cannot deactivate the last active admin")
				}
			}
		}
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update user")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditUserUpdate, "user", user.ID, map[string]interface{}{
		"fields": keys(updates),
	})

	if err := h.db.First(&user, user.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload user")
	}
	return response.Success(c, user)
}

// DeleteUser handles DELETE /api/v1/users/:id (admin only, soft delete)
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var user model.User
	if err := h.db.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if user.ID == actor.ID {
		return response.Conflict(c, "Cannot delete your own account")
	}

	// An HOD still heading a department must be replaced first
	var heads int64
	if err := h.db.Model(&model.Department{}).Where("hod_id = ?", user.ID).Count(&heads).Error; err != nil {
		return response.InternalServerError(c, "Failed to check department heads")
	}
	if heads > 0 {
		return response.Conflict(c, "User is the head of a department; reassign the department first")
	}

	// Students with recorded grades keep their history
	if user.Role == model.RoleStudent {
		var grades int64
		if err := h.db.Model(&model.Grade{}).Where("student_id = ?", user.ID).Count(&grades).Error; err != nil {
			return response.InternalServerError(c, "Failed to check student grades")
		}
		if grades > 0 {
			return response.Conflict(c, "Student has recorded grades; deactivate the account instead")
		}
	}

	if err := h.db.Delete(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete user")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditUserDelete, "user", user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	return response.Success(c, fiber.Map{
		"message": "User deleted successfully",
	})
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
