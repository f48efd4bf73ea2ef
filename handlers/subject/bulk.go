package subject

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/middleware"
	"github.com/acadex/acadex-api/utils/response"
	"github.com/acadex/acadex-api/utils/validation"
)

// BulkCreateRequest carries a batch of subjects to create
type BulkCreateRequest struct {
	Subjects []CreateSubjectRequest `json:"subjects" validate:"required,min=1,max=500"`
}

// BulkItemResult reports the outcome of one item in a bulk request
type BulkItemResult struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
	OK    bool   `json:"ok"`
	ID    uint   `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// BulkCreateResponse summarizes a bulk create
type BulkCreateResponse struct {
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	Results []BulkItemResult `json:"results"`
}

// authorizeBatch checks the actor's authority over every department named in
// the batch. One denied item rejects the whole request; per-item reporting is
// reserved for validation and not-found failures.
func authorizeBatch(actor *model.User, items []CreateSubjectRequest) error {
	for i, item := range items {
		if !canManageSubject(actor, item.DepartmentID) {
			return fiber.NewError(fiber.StatusForbidden,
				fmt.Sprintf("item %d: not allowed to manage subjects in department %d", i, item.DepartmentID))
		}
	}
	return nil
}

// BulkCreateSubjects handles POST /api/v1/subjects/bulk (admin or HOD). The
// whole batch is authorized up front; after that items are processed
// independently, so a bad row is reported and skipped while the rest land.
func (h *SubjectHandler) BulkCreateSubjects(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var req BulkCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Subjects) == 0 {
		return response.BadRequest(c, "No subjects provided")
	}
	if len(req.Subjects) > 500 {
		return response.BadRequest(c, "At most 500 subjects per request")
	}

	if err := authorizeBatch(actor, req.Subjects); err != nil {
		fe := err.(*fiber.Error)
		return response.Forbidden(c, fe.Message)
	}

	res := BulkCreateResponse{Results: make([]BulkItemResult, 0, len(req.Subjects))}

	for i, item := range req.Subjects {
		result := BulkItemResult{Index: i, Code: item.Code}

		subject, err := h.createOne(actor, item)
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				result.Error = fe.Message
			} else {
				result.Error = err.Error()
			}
			res.Failed++
			res.Results = append(res.Results, result)
			continue
		}

		result.OK = true
		result.ID = subject.ID
		res.Created++
		res.Results = append(res.Results, result)
	}

	h.audit.Log(c.Context(), &actor.ID, model.AuditSubjectCreate, "subject", 0, map[string]interface{}{
		"bulk":    true,
		"created": res.Created,
		"failed":  res.Failed,
	})

	return response.Success(c, res)
}

// createOne runs the single-subject invariants and inserts the row. Failures
// come back as fiber errors so callers can surface the message per item.
func (h *SubjectHandler) createOne(actor *model.User, req CreateSubjectRequest) (*model.Subject, error) {
	if err := h.validator.ValidateStruct(req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "validation failed")
	}
	if !canManageSubject(actor, req.DepartmentID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "not allowed to manage subjects in this department")
	}

	var dept model.Department
	if err := h.db.First(&dept, req.DepartmentID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "department not found")
	}
	if !dept.IsActive {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "department is not active")
	}
	if req.Semester > dept.TotalSemesters {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "semester exceeds the department's semester count")
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Code = validation.SanitizeString(req.Code)

	var existing model.Subject
	err := h.db.Where("code = ? AND department_id = ? AND semester = ? AND academic_year = ?",
		req.Code, req.DepartmentID, req.Semester, req.AcademicYear).First(&existing).Error
	if err == nil {
		return nil, fiber.NewError(fiber.StatusConflict, "subject code already exists in that semester and year")
	}

	if req.TeacherID != nil {
		if err := h.validateTeacher(*req.TeacherID, req.DepartmentID); err != nil {
			return nil, err
		}
	}

	prereqs, err := h.resolvePrerequisites(req.PrerequisiteIDs, req.DepartmentID, 0)
	if err != nil {
		return nil, err
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
		return nil, fiber.NewError(fiber.StatusConflict, "subject conflicts with an existing record")
	}

	return &subject, nil
}
