package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/apperror"
)

// GradeService owns the grade write lifecycle: upsert, publish, delete and
// the bulk entry path.
type GradeService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewGradeService creates a new grade service
func NewGradeService(db *gorm.DB, audit *AuditService) *GradeService {
	return &GradeService{db: db, audit: audit}
}

// UpsertGradeInput carries one grade entry. Derived fields (total, letter,
// points) are never part of the input.
type UpsertGradeInput struct {
	StudentID      uint
	SubjectID      uint
	ExamType       string
	TheoryMarks    float64
	PracticalMarks float64
	InternalMarks  float64
	IsAbsent       bool
	Semester       int    // defaults to the subject's semester
	AcademicYear   string // defaults to the subject's academic year
	Remarks        string
}

func validateMarks(in UpsertGradeInput) error {
	checks := []struct {
		field string
		value float64
	}{
		{"theory_marks", in.TheoryMarks},
		{"practical_marks", in.PracticalMarks},
		{"internal_marks", in.InternalMarks},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > 100 {
			return apperror.Validation(c.field, "must be between 0 and 100")
		}
	}
	if !model.ValidExamType(in.ExamType) {
		return apperror.Validation("exam_type", "must be one of: Regular, Supplementary, Improvement")
	}
	return nil
}

// resolveReferences loads and checks the subject and student an entry points
// at. Returned subject carries the scope the authorization policy needs.
func (s *GradeService) resolveReferences(ctx context.Context, in UpsertGradeInput) (*model.Subject, *model.User, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, in.SubjectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperror.NotFound("subject")
		}
		return nil, nil, err
	}
	if !subject.IsActive {
		return nil, nil, apperror.Validation("subject_id", "subject is not active")
	}

	var student model.User
	if err := s.db.WithContext(ctx).First(&student, in.StudentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperror.NotFound("student")
		}
		return nil, nil, err
	}
	if student.Role != model.RoleStudent {
		return nil, nil, apperror.Validation("student_id", "user is not a student")
	}
	if !student.IsActive {
		return nil, nil, apperror.Validation("student_id", "student is not active")
	}
	if student.DepartmentID == nil || *student.DepartmentID != subject.DepartmentID {
		return nil, nil, apperror.Validation("student_id", "student does not belong to the subject's department")
	}

	return &subject, &student, nil
}

// Upsert creates or updates the grade for (student, subject, exam type). The
// composite unique index is the actual guard against concurrent duplicate
// submissions; the ON CONFLICT clause turns the race loser into an update of
// the same row. Any marks edit resets the published flag, requiring
// re-publication.
func (s *GradeService) Upsert(ctx context.Context, actor *model.User, in UpsertGradeInput) (*model.Grade, error) {
	if err := validateMarks(in); err != nil {
		return nil, err
	}

	subject, student, err := s.resolveReferences(ctx, in)
	if err != nil {
		return nil, err
	}

	grade := model.Grade{
		StudentID:      student.ID,
		SubjectID:      subject.ID,
		ExamType:       in.ExamType,
		TheoryMarks:    in.TheoryMarks,
		PracticalMarks: in.PracticalMarks,
		InternalMarks:  in.InternalMarks,
		IsAbsent:       in.IsAbsent,
		Semester:       in.Semester,
		AcademicYear:   in.AcademicYear,
		Remarks:        in.Remarks,
	}
	if grade.Semester == 0 {
		grade.Semester = subject.Semester
	}
	if grade.AcademicYear == "" {
		grade.AcademicYear = subject.AcademicYear
	}
	if grade.Semester < 1 || grade.Semester > 8 {
		return nil, apperror.Validation("semester", "must be between 1 and 8")
	}
	if actor != nil {
		grade.GradedByID = &actor.ID
	}

	if !CanAccess(actor, ActionWrite, GradeResource(&grade, subject)) {
		return nil, apperror.Forbidden("not allowed to enter grades for this subject")
	}

	// Derived fields are recomputed here, before persistence, never by a
	// storage hook.
	grade.Recalculate()

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "exam_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"theory_marks":    grade.TheoryMarks,
			"practical_marks": grade.PracticalMarks,
			"internal_marks":  grade.InternalMarks,
			"total":           grade.Total,
			"grade_letter":    grade.GradeLetter,
			"grade_points":    grade.GradePoints,
			"is_absent":       grade.IsAbsent,
			"semester":        grade.Semester,
			"academic_year":   grade.AcademicYear,
			"remarks":         grade.Remarks,
			"graded_by_id":    grade.GradedByID,
			"is_published":    false,
			"published_at":    nil,
			"updated_at":      time.Now(),
		}),
	}).Create(&grade).Error
	if err != nil {
		return nil, err
	}

	// On conflict gorm does not backfill the existing row's ID; reload by key.
	var saved model.Grade
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ? AND exam_type = ?", grade.StudentID, grade.SubjectID, grade.ExamType).
		First(&saved).Error; err != nil {
		return nil, err
	}

	var actorID *uint
	if actor != nil {
		actorID = &actor.ID
	}
	s.audit.Log(ctx, actorID, model.AuditGradeUpsert, "grade", saved.ID, map[string]interface{}{
		"student_id": saved.StudentID,
		"subject_id": saved.SubjectID,
		"exam_type":  saved.ExamType,
		"total":      saved.Total,
		"grade":      saved.GradeLetter,
	})

	return &saved, nil
}

// Get loads one grade and enforces read access.
func (s *GradeService) Get(ctx context.Context, actor *model.User, gradeID uint) (*model.Grade, error) {
	var grade model.Grade
	if err := s.db.WithContext(ctx).
		Preload("Subject").Preload("Student").
		First(&grade, gradeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("grade")
		}
		return nil, err
	}

	if !CanAccess(actor, ActionRead, GradeResource(&grade, grade.Subject)) {
		return nil, apperror.Forbidden("not allowed to view this grade")
	}
	return &grade, nil
}

// Publish makes one grade visible to its student.
func (s *GradeService) Publish(ctx context.Context, actor *model.User, gradeID uint) (*model.Grade, error) {
	var grade model.Grade
	if err := s.db.WithContext(ctx).Preload("Subject").First(&grade, gradeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("grade")
		}
		return nil, err
	}

	if !CanAccess(actor, ActionPublish, GradeResource(&grade, grade.Subject)) {
		return nil, apperror.Forbidden("not allowed to publish grades for this subject")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&grade).Updates(map[string]interface{}{
		"is_published": true,
		"published_at": now,
	}).Error; err != nil {
		return nil, err
	}
	grade.IsPublished = true
	grade.PublishedAt = &now

	var actorID *uint
	if actor != nil {
		actorID = &actor.ID
	}
	s.audit.Log(ctx, actorID, model.AuditGradePublish, "grade", grade.ID, nil)

	return &grade, nil
}

// PublishSubject publishes every unpublished grade of a subject and returns
// how many were published.
func (s *GradeService) PublishSubject(ctx context.Context, actor *model.User, subjectID uint) (int64, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, apperror.NotFound("subject")
		}
		return 0, err
	}

	// Publishing for a subject is grade-level access on that subject's scope.
	probe := model.Grade{SubjectID: subject.ID}
	if !CanAccess(actor, ActionPublish, GradeResource(&probe, &subject)) {
		return 0, apperror.Forbidden("not allowed to publish grades for this subject")
	}

	result := s.db.WithContext(ctx).
		Model(&model.Grade{}).
		Where("subject_id = ? AND is_published = ?", subject.ID, false).
		Updates(map[string]interface{}{
			"is_published": true,
			"published_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}

	var actorID *uint
	if actor != nil {
		actorID = &actor.ID
	}
	s.audit.Log(ctx, actorID, model.AuditGradePublish, "subject", subject.ID, map[string]interface{}{
		"published_count": result.RowsAffected,
	})

	return result.RowsAffected, nil
}

// Delete hard-deletes a grade. The policy limits this to admin and the
// subject's department HOD.
func (s *GradeService) Delete(ctx context.Context, actor *model.User, gradeID uint) error {
	var grade model.Grade
	if err := s.db.WithContext(ctx).Preload("Subject").First(&grade, gradeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperror.NotFound("grade")
		}
		return err
	}

	if !CanAccess(actor, ActionDelete, GradeResource(&grade, grade.Subject)) {
		return apperror.Forbidden("not allowed to delete this grade")
	}

	if err := s.db.WithContext(ctx).Delete(&model.Grade{}, grade.ID).Error; err != nil {
		return err
	}

	var actorID *uint
	if actor != nil {
		actorID = &actor.ID
	}
	s.audit.Log(ctx, actorID, model.AuditGradeDelete, "grade", grade.ID, map[string]interface{}{
		"student_id": grade.StudentID,
		"subject_id": grade.SubjectID,
		"exam_type":  grade.ExamType,
	})

	return nil
}

// BulkItemResult is the outcome of one entry in a bulk upsert.
type BulkItemResult struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	GradeID uint   `json:"grade_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BulkResult summarizes a bulk upsert.
type BulkResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Items      []BulkItemResult `json:"items"`
}

// BulkUpsert processes grade entries independently: one item's validation or
// reference failure never aborts or rolls back its siblings, and each item's
// outcome is reported by index. Authorization is the exception — if the actor
// lacks access to any referenced subject the whole request fails with a
// permission error rather than a partial success.
func (s *GradeService) BulkUpsert(ctx context.Context, actor *model.User, items []UpsertGradeInput) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, apperror.Validation("grades", "at least one grade entry is required")
	}

	// Authorization pass over every resolvable subject first.
	subjects := make(map[uint]*model.Subject)
	for i, in := range items {
		subject, ok := subjects[in.SubjectID]
		if !ok {
			var loaded model.Subject
			err := s.db.WithContext(ctx).First(&loaded, in.SubjectID).Error
			if err == gorm.ErrRecordNotFound {
				// Missing subject is a per-item failure, handled below.
				continue
			}
			if err != nil {
				return nil, err
			}
			subject = &loaded
			subjects[in.SubjectID] = subject
		}

		placeholder := model.Grade{StudentID: in.StudentID, SubjectID: in.SubjectID}
		if !CanAccess(actor, ActionWrite, GradeResource(&placeholder, subject)) {
			return nil, apperror.Forbidden(fmt.Sprintf("not allowed to enter grades for subject %d (item %d)", in.SubjectID, i))
		}
	}

	result := &BulkResult{Total: len(items), Items: make([]BulkItemResult, 0, len(items))}
	for i, in := range items {
		saved, err := s.Upsert(ctx, actor, in)
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, BulkItemResult{
				Index: i,
				Error: err.Error(),
			})
			continue
		}
		result.Successful++
		result.Items = append(result.Items, BulkItemResult{
			Index:   i,
			Success: true,
			GradeID: saved.ID,
		})
	}

	return result, nil
}

// GradeListFilters narrows a grade listing.
type GradeListFilters struct {
	StudentID    uint
	SubjectID    uint
	Semester     int
	AcademicYear string
	ExamType     string
	Published    *bool
	Page         int
	Limit        int
}

// List returns grades the actor may see, scoped in the query itself. Total is
// the scoped count for pagination.
func (s *GradeService) List(ctx context.Context, actor *model.User, filters GradeListFilters) ([]model.Grade, int64, error) {
	base := s.db.WithContext(ctx).Model(&model.Grade{})
	query, err := ScopeGrades(actor, base)
	if err != nil {
		return nil, 0, err
	}

	if filters.StudentID > 0 {
		query = query.Where("grades.student_id = ?", filters.StudentID)
	}
	if filters.SubjectID > 0 {
		query = query.Where("grades.subject_id = ?", filters.SubjectID)
	}
	if filters.Semester > 0 {
		query = query.Where("grades.semester = ?", filters.Semester)
	}
	if filters.AcademicYear != "" {
		query = query.Where("grades.academic_year = ?", filters.AcademicYear)
	}
	if filters.ExamType != "" {
		query = query.Where("grades.exam_type = ?", filters.ExamType)
	}
	if filters.Published != nil {
		query = query.Where("grades.is_published = ?", *filters.Published)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var grades []model.Grade
	if err := query.
		Preload("Subject").Preload("Student").
		Order("grades.semester ASC, grades.subject_id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&grades).Error; err != nil {
		return nil, 0, err
	}

	return grades, total, nil
}
