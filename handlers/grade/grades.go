package grade

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

// GradeHandler handles grade-related requests
type GradeHandler struct {
	db          *gorm.DB
	validator   *validation.Validator
	grades      *services.GradeService
	aggregation *services.AggregationService
	analytics   *services.AnalyticsService
}

// NewGradeHandler creates a new grade handler
func NewGradeHandler(db *gorm.DB, grades *services.GradeService, aggregation *services.AggregationService, analytics *services.AnalyticsService) *GradeHandler {
	return &GradeHandler{
		db:          db,
		validator:   validation.NewValidator(),
		grades:      grades,
		aggregation: aggregation,
		analytics:   analytics,
	}
}

// UpsertGradeRequest represents the request body for recording marks
type UpsertGradeRequest struct {
	StudentID      uint    `json:"student_id" validate:"required"`
	SubjectID      uint    `json:"subject_id" validate:"required"`
	ExamType       string  `json:"exam_type" validate:"required,oneof=Regular Supplementary Improvement"`
	TheoryMarks    float64 `json:"theory_marks" validate:"gte=0,lte=100"`
	PracticalMarks float64 `json:"practical_marks" validate:"gte=0,lte=100"`
	InternalMarks  float64 `json:"internal_marks" validate:"gte=0,lte=100"`
	IsAbsent       bool    `json:"is_absent"`
	Semester       int     `json:"semester" validate:"omitempty,gte=1,lte=8"`
	AcademicYear   string  `json:"academic_year" validate:"omitempty,academic_year"`
	Remarks        string  `json:"remarks" validate:"omitempty,max=500"`
}

func (r UpsertGradeRequest) toInput() services.UpsertGradeInput {
	return services.UpsertGradeInput{
		StudentID:      r.StudentID,
		SubjectID:      r.SubjectID,
		ExamType:       r.ExamType,
		TheoryMarks:    r.TheoryMarks,
		PracticalMarks: r.PracticalMarks,
		InternalMarks:  r.InternalMarks,
		IsAbsent:       r.IsAbsent,
		Semester:       r.Semester,
		AcademicYear:   r.AcademicYear,
		Remarks:        r.Remarks,
	}
}

// UpsertGrade handles POST /api/v1/grades. Recording marks for an existing
// (student, subject, exam type) attempt overwrites it and resets publication.
func (h *GradeHandler) UpsertGrade(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req UpsertGradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	grade, err := h.grades.Upsert(c.Context(), actor, req.toInput())
	if err != nil {
		return response.AppError(c, err)
	}

	h.analytics.InvalidateGradeCaches(c.Context())
	return response.Created(c, grade)
}

// BulkUpsertRequest carries a batch of grade entries
type BulkUpsertRequest struct {
	Grades []UpsertGradeRequest `json:"grades" validate:"required,min=1,max=500"`
}

// BulkUpsertGrades handles POST /api/v1/grades/bulk. Authorization is checked
// over the whole batch up front; validation failures are reported per item.
func (h *GradeHandler) BulkUpsertGrades(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req BulkUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Grades) == 0 {
		return response.BadRequest(c, "No grades provided")
	}
	if len(req.Grades) > 500 {
		return response.BadRequest(c, "At most 500 grades per request")
	}

	inputs := make([]services.UpsertGradeInput, 0, len(req.Grades))
	for _, item := range req.Grades {
		inputs = append(inputs, item.toInput())
	}

	result, err := h.grades.BulkUpsert(c.Context(), actor, inputs)
	if err != nil {
		return response.AppError(c, err)
	}

	h.analytics.InvalidateGradeCaches(c.Context())
	return response.Success(c, result)
}

// GetGrade handles GET /api/v1/grades/:id
func (h *GradeHandler) GetGrade(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid grade ID")
	}

	grade, err := h.grades.Get(c.Context(), actor, uint(id))
	if err != nil {
		return response.AppError(c, err)
	}

	return response.Success(c, grade)
}

// ListGrades handles GET /api/v1/grades. The query is pre-scoped to the
// actor's visibility before filters apply.
func (h *GradeHandler) ListGrades(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	studentID, _ := strconv.Atoi(c.Query("student_id", "0"))
	subjectID, _ := strconv.Atoi(c.Query("subject_id", "0"))
	semester, _ := strconv.Atoi(c.Query("semester", "0"))

	filters := services.GradeListFilters{
		StudentID:    uint(studentID),
		SubjectID:    uint(subjectID),
		Semester:     semester,
		AcademicYear: c.Query("academic_year", ""),
		ExamType:     c.Query("exam_type", ""),
		Page:         page,
		Limit:        limit,
	}

	if published := c.Query("published", ""); published != "" {
		value := published == "true"
		filters.Published = &value
	}

	grades, total, err := h.grades.List(c.Context(), actor, filters)
	if err != nil {
		return response.AppError(c, err)
	}

	pagination := response.CalculatePagination(page, limit, total)
	return response.Paginated(c, grades, pagination)
}

// PublishGrade handles POST /api/v1/grades/:id/publish
func (h *GradeHandler) PublishGrade(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid grade ID")
	}

	grade, err := h.grades.Publish(c.Context(), actor, uint(id))
	if err != nil {
		return response.AppError(c, err)
	}

	h.analytics.InvalidateGradeCaches(c.Context())
	return response.Success(c, grade)
}

// PublishSubjectGrades handles POST /api/v1/subjects/:id/grades/publish. All
// unpublished grades of the subject become visible to their students at once.
func (h *GradeHandler) PublishSubjectGrades(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid subject ID")
	}

	published, err := h.grades.PublishSubject(c.Context(), actor, uint(id))
	if err != nil {
		return response.AppError(c, err)
	}

	h.analytics.InvalidateGradeCaches(c.Context())
	return response.Success(c, fiber.Map{
		"published": published,
	})
}

// DeleteGrade handles DELETE /api/v1/grades/:id
func (h *GradeHandler) DeleteGrade(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid grade ID")
	}

	if err := h.grades.Delete(c.Context(), actor, uint(id)); err != nil {
		return response.AppError(c, err)
	}

	h.analytics.InvalidateGradeCaches(c.Context())
	return response.Success(c, fiber.Map{
		"message": "Grade deleted successfully",
	})
}

// MyGrades handles GET /api/v1/grades/my. Students see their own published
// grades, optionally narrowed by semester or academic year.
func (h *GradeHandler) MyGrades(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	if actor.Role != model.RoleStudent {
		return response.Forbidden(c, "Only students have a personal grade sheet")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	semester, _ := strconv.Atoi(c.Query("semester", "0"))

	filters := services.GradeListFilters{
		Semester:     semester,
		AcademicYear: c.Query("academic_year", ""),
		Page:         page,
		Limit:        limit,
	}

	grades, total, err := h.grades.List(c.Context(), actor, filters)
	if err != nil {
		return response.AppError(c, err)
	}

	pagination := response.CalculatePagination(page, limit, total)
	return response.Paginated(c, grades, pagination)
}

// MyCGPA handles GET /api/v1/grades/my/cgpa for the authenticated student.
func (h *GradeHandler) MyCGPA(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	if actor.Role != model.RoleStudent {
		return response.Forbidden(c, "Only students have a CGPA")
	}

	return h.computeCGPA(c, actor.ID)
}

// StudentCGPA handles GET /api/v1/students/:id/cgpa for staff.
func (h *GradeHandler) StudentCGPA(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid student ID")
	}

	var student model.User
	if err := h.db.First(&student, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to fetch student")
	}

	if !services.CanAccess(actor, services.ActionRead, services.UserResource(&student)) {
		return response.Forbidden(c, "Not allowed to view this student's results")
	}

	return h.computeCGPA(c, student.ID)
}

func (h *GradeHandler) computeCGPA(c *fiber.Ctx, studentID uint) error {
	semester, _ := strconv.Atoi(c.Query("semester", "0"))
	filters := services.GradeFilters{
		Semester:     semester,
		AcademicYear: c.Query("academic_year", ""),
	}

	result, err := h.aggregation.ComputeCGPA(c.Context(), studentID, filters)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.Success(c, result)
}
