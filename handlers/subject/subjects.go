package subject

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

// SubjectHandler handles subject-related requests
type SubjectHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	audit     *services.AuditService
}

// NewSubjectHandler creates a new subject handler
func NewSubjectHandler(db *gorm.DB, audit *services.AuditService) *SubjectHandler {
	return &SubjectHandler{
		db:        db,
		validator: validation.NewValidator(),
		audit:     audit,
	}
}

// CreateSubjectRequest represents the request body for creating a subject
type CreateSubjectRequest struct {
	Name            string `json:"name" validate:"required,min=3,max=255"`
	Code            string `json:"code" validate:"required,min=2,max=20"`
	DepartmentID    uint   `json:"department_id" validate:"required"`
	Semester        int    `json:"semester" validate:"required,gte=1,lte=8"`
	AcademicYear    string `json:"academic_year" validate:"required,academic_year"`
	Credits         int    `json:"credits" validate:"required,gte=1,lte=10"`
	Description     string `json:"description" validate:"omitempty,max=1000"`
	TeacherID       *uint  `json:"teacher_id"`
	PrerequisiteIDs []uint `json:"prerequisite_ids"`
}

// UpdateSubjectRequest represents the request body for updating a subject
type UpdateSubjectRequest struct {
	Name            string  `json:"name" validate:"omitempty,min=3,max=255"`
	Credits         int     `json:"credits" validate:"omitempty,gte=1,lte=10"`
	Description     string  `json:"description" validate:"omitempty,max=1000"`
	TeacherID       *uint   `json:"teacher_id"`
	PrerequisiteIDs *[]uint `json:"prerequisite_ids"`
	IsActive        *bool   `json:"is_active"`
}

// canManageSubject returns true when the actor may create or edit subjects in
// the given department: admins anywhere, HODs only at home.
func canManageSubject(actor *model.User, departmentID uint) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleHOD:
		return actor.DepartmentID != nil && *actor.DepartmentID == departmentID
	}
	return false
}

// validateTeacher checks the teacher assignment invariant: an active teacher
// belonging to the subject's department.
func (h *SubjectHandler) validateTeacher(teacherID, departmentID uint) error {
	var teacher model.User
	if err := h.db.First(&teacher, teacherID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Teacher not found")
		}
		return err
	}
	if teacher.Role != model.RoleTeacher {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Assigned user is not a teacher")
	}
	if !teacher.IsActive {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Assigned teacher is not active")
	}
	if teacher.DepartmentID == nil || *teacher.DepartmentID != departmentID {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Teacher belongs to a different department")
	}
	return nil
}

// resolvePrerequisites resolves prerequisite IDs into subjects of the same
// department. Prerequisites are informational; no cycle checking beyond the
// self reference.
func (h *SubjectHandler) resolvePrerequisites(ids []uint, departmentID, selfID uint) ([]model.Subject, error) {
	if len(ids) == 0 {
		return []model.Subject{}, nil
	}

	var prereqs []model.Subject
	if err := h.db.Where("id IN ?", ids).Find(&prereqs).Error; err != nil {
		return nil, err
	}
	if len(prereqs) != len(ids) {
		return nil, fiber.NewError(fiber.StatusNotFound, "One or more prerequisites not found")
	}
	for _, p := range prereqs {
		if p.ID == selfID {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "A subject cannot be its own prerequisite")
		}
		if p.DepartmentID != departmentID {
			return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "Prerequisites must belong to the same department")
		}
	}
	return prereqs, nil
}

// ListSubjects handles GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")
	departmentID := c.Query("department_id", "")
	semester := c.Query("semester", "")
	academicYear := c.Query("academic_year", "")
	teacherID := c.Query("teacher_id", "")

	query := h.db.Model(&model.Subject{})

	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}
	if semester != "" {
		query = query.Where("semester = ?", semester)
	}
	if academicYear != "" {
		query = query.Where("academic_year = ?", academicYear)
	}
	if teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count subjects")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var subjects []model.Subject
	if err := query.Preload("Teacher").
		Order("semester ASC, code ASC").
		Limit(limit).
		Offset(offset).
		Find(&subjects).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch subjects")
	}

	return response.Paginated(c, subjects, pagination)
}

// GetSubject handles GET /api/v1/subjects/:id
func (h *SubjectHandler) GetSubject(c *fiber.Ctx) error {
	id := c.Params("id")

	var subject model.Subject
	if err := h.db.Preload("Department").Preload("Teacher").Preload("Prerequisites").
		First(&subject, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Subject not found")
		}
		return response.InternalServerError(c, "Failed to fetch subject")
	}

	return response.Success(c, subject)
}

// CreateSubject handles POST /api/v1/subjects (admin or owning HOD)
func (h *SubjectHandler) CreateSubject(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if !canManageSubject(actor, req.DepartmentID) {
		return response.Forbidden(c, "Not allowed to manage subjects in this department")
	}

	var dept model.Department
	if err := h.db.First(&dept, req.DepartmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Department not found")
		}
		return response.InternalServerError(c, "Failed to fetch department")
	}
	if !dept.IsActive {
		return response.Error(c, fiber.StatusUnprocessableEntity, "Department is not active", "DEPARTMENT_INACTIVE")
	}
	if req.Semester > dept.TotalSemesters {
		return response.Error(c, fiber.StatusUnprocessableEntity, "Semester exceeds the department's semester count", "INVALID_SEMESTER")
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Code = validation.SanitizeString(req.Code)

	var existing model.Subject
	err := h.db.Where("code = ? AND department_id = ? AND semester = ? AND academic_year = ?",
		req.Code, req.DepartmentID, req.Semester, req.AcademicYear).First(&existing).Error
	if err == nil {
		return response.Conflict(c, "Subject with this code already exists in that semester and year")
	}

	if req.TeacherID != nil {
		if err := h.validateTeacher(*req.TeacherID, req.DepartmentID); err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return response.Error(c, fe.Code, fe.Message, "INVALID_TEACHER")
			}
			return response.InternalServerError(c, "Failed to validate teacher")
		}
	}

	prereqs, err := h.resolvePrerequisites(req.PrerequisiteIDs, req.DepartmentID, 0)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return response.Error(c, fe.Code, fe.Message, "INVALID_PREREQUISITE")
		}
		return response.InternalServerError(c, "Failed to resolve prerequisites")
	}

	subject := model.Subject{
		Name:          req.Name,
		Code:          req.Code,
		DepartmentID:  req.DepartmentID,
		Semester:      req.Semester,
		AcademicYear:  req.AcademicYear,
		Credits:       req.Credits,
		Description:   req.Description,
		TeacherID:     req.TeacherID,
		MaxMarks:      300,
		PassingMarks:  120,
		IsActive:      true,
		Prerequisites: prereqs,
	}
	if err := h.db.Create(&subject).Error; err != nil {
		return response.Conflict(c, "Subject conflicts with an existing record")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditSubjectCreate, "subject", subject.ID, map[string]interface{}{
		"code":          subject.Code,
		"department_id": subject.DepartmentID,
	})

	return response.Created(c, subject)
}

// UpdateSubject handles PUT /api/v1/subjects/:id (admin or owning HOD)
func (h *SubjectHandler) UpdateSubject(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var subject model.Subject
	if err := h.db.First(&subject, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Subject not found")
		}
		return response.InternalServerError(c, "Failed to fetch subject")
	}

	if !canManageSubject(actor, subject.DepartmentID) {
		return response.Forbidden(c, "Not allowed to manage subjects in this department")
	}

	var req UpdateSubjectRequest
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
	if req.Credits != 0 {
		updates["credits"] = req.Credits
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if req.TeacherID != nil {
		if err := h.validateTeacher(*req.TeacherID, subject.DepartmentID); err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return response.Error(c, fe.Code, fe.Message, "INVALID_TEACHER")
			}
			return response.InternalServerError(c, "Failed to validate teacher")
		}
		updates["teacher_id"] = *req.TeacherID
	}

	if len(updates) > 0 {
		if err := h.db.Model(&subject).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update subject")
		}
	}

	if req.PrerequisiteIDs != nil {
		prereqs, err := h.resolvePrerequisites(*req.PrerequisiteIDs, subject.DepartmentID, subject.ID)
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return response.Error(c, fe.Code, fe.Message, "INVALID_PREREQUISITE")
			}
			return response.InternalServerError(c, "Failed to resolve prerequisites")
		}
		if err := h.db.Model(&subject).Association("Prerequisites").Replace(prereqs); err != nil {
			return response.InternalServerError(c, "Failed to update prerequisites")
		}
	} else if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditSubjectUpdate, "subject", subject.ID, nil)

	if err := h.db.Preload("Teacher").Preload("Prerequisites").First(&subject, subject.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload subject")
	}
	return response.Success(c, subject)
}

// DeleteSubject handles DELETE /api/v1/subjects/:id (admin or owning HOD). A
// subject with recorded grades is never deleted.
func (h *SubjectHandler) DeleteSubject(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	id := c.Params("id")

	var subject model.Subject
	if err := h.db.First(&subject, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Subject not found")
		}
		return response.InternalServerError(c, "Failed to fetch subject")
	}

	if !canManageSubject(actor, subject.DepartmentID) {
		return response.Forbidden(c, "Not allowed to manage subjects in this department")
	}

	var grades int64
	if err := h.db.Model(&model.Grade{}).Where("subject_id = ?", subject.ID).Count(&grades).Error; err != nil {
		return response.InternalServerError(c, "Failed to check subject grades")
	}
	if grades > 0 {
		return response.Conflict(c, "Subject has recorded grades; deactivate it instead")
	}

	if err := h.db.Select("Prerequisites").Delete(&subject).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete subject")
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditSubjectDelete, "subject", subject.ID, map[string]interface{}{
		"code": subject.Code,
	})

	return response.Success(c, fiber.Map{
		"message": "Subject deleted successfully",
	})
}
