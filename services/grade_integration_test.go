package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acadex/acadex-api/model"
)

// setupTestDB connects to the test database and provisions a department with
// one teacher, one student and one subject. Tests run only when
// RUN_INTEGRATION_TESTS=true.
func setupTestDB(t *testing.T) (*gorm.DB, *model.User, *model.User, *model.Subject) {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=acadex_test port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Department{}, &model.User{}, &model.Subject{},
		&model.Grade{}, &model.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	suffix := time.Now().UnixNano()

	dept := model.Department{
		Name: fmt.Sprintf("Test Department %d", suffix),
		Code: fmt.Sprintf("TD%d", suffix),
		TotalSemesters: 8, IsActive: true,
	}
	if err := db.Create(&dept).Error; err != nil {
		t.Fatalf("failed to create department: %v", err)
	}

	employeeID := fmt.Sprintf("EMP-%d", suffix)
	teacher := model.User{
		Name: "Test Teacher", Email: fmt.Sprintf("teacher%d@test.local", suffix),
		PasswordHash: "x", Role: model.RoleTeacher,
		DepartmentID: &dept.ID, EmployeeID: &employeeID, IsActive: true,
	}
	if err := db.Create(&teacher).Error; err != nil {
		t.Fatalf("failed to create teacher: %v", err)
	}

	rollNumber := fmt.Sprintf("ROLL-%d", suffix)
	student := model.User{
		Name: "Test Student", Email: fmt.Sprintf("student%d@test.local", suffix),
		PasswordHash: "x", Role: model.RoleStudent,
		DepartmentID: &dept.ID, RollNumber: &rollNumber,
		AcademicYear: "2025-2026", Semester: 3, IsActive: true,
	}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("failed to create student: %v", err)
	}

	subject := model.Subject{
		Name: "Test Subject", Code: fmt.Sprintf("TS%d", suffix),
		DepartmentID: dept.ID, Semester: 3, AcademicYear: "2025-2026",
		Credits: 4, TeacherID: &teacher.ID,
		MaxMarks: 300, PassingMarks: 120, IsActive: true,
	}
	if err := db.Create(&subject).Error; err != nil {
		t.Fatalf("failed to create subject: %v", err)
	}

	t.Cleanup(func() {
		db.Where("subject_id = ?", subject.ID).Delete(&model.Grade{})
		db.Unscoped().Delete(&subject)
		db.Unscoped().Delete(&student)
		db.Unscoped().Delete(&teacher)
		db.Unscoped().Delete(&dept)
	})

	return db, &teacher, &student, &subject
}

func TestUpsertGradeIdempotence(t *testing.T) {
	db, teacher, student, subject := setupTestDB(t)
	svc := NewGradeService(db, NewAuditService(db))
	ctx := context.Background()

	in := UpsertGradeInput{
		StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamRegular,
		TheoryMarks: 30, PracticalMarks: 30, InternalMarks: 30,
	}

	first, err := svc.Upsert(ctx, teacher, in)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if first.Total != 90 || first.GradeLetter != "O" {
		t.Errorf("derived fields = (%v, %q), want (90, O)", first.Total, first.GradeLetter)
	}

	// Publish, then resubmit with different marks
	if _, err := svc.Publish(ctx, teacher, first.ID); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	in.TheoryMarks = 10
	in.PracticalMarks = 10
	in.InternalMarks = 15
	second, err := svc.Upsert(ctx, teacher, in)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert created a duplicate row: %d vs %d", second.ID, first.ID)
	}
	if second.Total != 35 || second.GradeLetter != "F" {
		t.Errorf("derived fields = (%v, %q), want (35, F)", second.Total, second.GradeLetter)
	}
	if second.IsPublished {
		t.Error("editing marks must reset publication")
	}

	var count int64
	db.Model(&model.Grade{}).
		Where("student_id = ? AND subject_id = ? AND exam_type = ?", student.ID, subject.ID, model.ExamRegular).
		Count(&count)
	if count != 1 {
		t.Errorf("found %d rows for the attempt key, want exactly 1", count)
	}
}

func TestUpsertGradeConcurrentSameKey(t *testing.T) {
	db, teacher, student, subject := setupTestDB(t)
	svc := NewGradeService(db, NewAuditService(db))
	ctx := context.Background()

	// Two simultaneous submissions for the same attempt key: the unique
	// index plus ON CONFLICT must leave exactly one row, whichever wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			marks := float64(20 + i*10)
			_, errs[i] = svc.Upsert(ctx, teacher, UpsertGradeInput{
				StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamRegular,
				TheoryMarks: marks, PracticalMarks: marks, InternalMarks: marks,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("upsert %d failed: %v", i, err)
		}
	}

	var count int64
	db.Model(&model.Grade{}).
		Where("student_id = ? AND subject_id = ? AND exam_type = ?", student.ID, subject.ID, model.ExamRegular).
		Count(&count)
	if count != 1 {
		t.Errorf("found %d rows for the attempt key, want exactly 1", count)
	}
}

func TestBulkUpsertMixedValidity(t *testing.T) {
	db, teacher, student, subject := setupTestDB(t)
	svc := NewGradeService(db, NewAuditService(db))
	ctx := context.Background()

	items := []UpsertGradeInput{
		{StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamRegular,
			TheoryMarks: 30, PracticalMarks: 30, InternalMarks: 30},
		{StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamSupplementary,
			TheoryMarks: 150, PracticalMarks: 10, InternalMarks: 10}, // out of range
		{StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamImprovement,
			TheoryMarks: 25, PracticalMarks: 25, InternalMarks: 25},
	}

	result, err := svc.BulkUpsert(ctx, teacher, items)
	if err != nil {
		t.Fatalf("BulkUpsert failed: %v", err)
	}

	if result.Successful != 2 || result.Failed != 1 {
		t.Errorf("got %d successful / %d failed, want 2 / 1", result.Successful, result.Failed)
	}
	if result.Items[1].Success || result.Items[1].Error == "" {
		t.Errorf("item 1 = %+v, want an enumerated failure", result.Items[1])
	}

	// The siblings of the bad item must still be committed
	var count int64
	db.Model(&model.Grade{}).Where("student_id = ? AND subject_id = ?", student.ID, subject.ID).Count(&count)
	if count != 2 {
		t.Errorf("found %d committed rows, want 2", count)
	}
	var supp int64
	db.Model(&model.Grade{}).
		Where("student_id = ? AND subject_id = ? AND exam_type = ?", student.ID, subject.ID, model.ExamSupplementary).
		Count(&supp)
	if supp != 0 {
		t.Error("the invalid item must not land")
	}
}

func TestUpsertGradeAuthorization(t *testing.T) {
	db, _, student, subject := setupTestDB(t)
	svc := NewGradeService(db, NewAuditService(db))
	ctx := context.Background()

	outsider := &model.User{ID: 999999, Role: model.RoleTeacher, IsActive: true}

	_, err := svc.Upsert(ctx, outsider, UpsertGradeInput{
		StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamRegular,
		TheoryMarks: 50, PracticalMarks: 50, InternalMarks: 50,
	})
	if err == nil {
		t.Fatal("unassigned teacher was allowed to record marks")
	}
}

func TestSubjectPerformanceSemesterFilter(t *testing.T) {
	db, teacher, student, subject := setupTestDB(t)
	grades := NewGradeService(db, NewAuditService(db))
	analytics := NewAnalyticsService(db, nil, NewAggregationService(db))
	ctx := context.Background()

	// One attempt in the subject's semester, one recorded against another
	attempts := []UpsertGradeInput{
		{StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamRegular,
			TheoryMarks: 30, PracticalMarks: 30, InternalMarks: 30, Semester: 3},
		{StudentID: student.ID, SubjectID: subject.ID, ExamType: model.ExamSupplementary,
			TheoryMarks: 10, PracticalMarks: 10, InternalMarks: 10, Semester: 4},
	}
	for _, in := range attempts {
		saved, err := grades.Upsert(ctx, teacher, in)
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if _, err := grades.Publish(ctx, teacher, saved.ID); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	all, err := analytics.SubjectPerformance(ctx, teacher, subject.ID, GradeFilters{})
	if err != nil {
		t.Fatalf("SubjectPerformance failed: %v", err)
	}
	if all.TotalGrades != 2 {
		t.Errorf("unfiltered TotalGrades = %d, want 2", all.TotalGrades)
	}

	third, err := analytics.SubjectPerformance(ctx, teacher, subject.ID, GradeFilters{Semester: 3})
	if err != nil {
		t.Fatalf("SubjectPerformance with semester failed: %v", err)
	}
	if third.TotalGrades != 1 {
		t.Errorf("semester-filtered TotalGrades = %d, want 1", third.TotalGrades)
	}
	if third.GradeDistribution["O"] != 1 {
		t.Errorf("distribution = %v, want the semester-3 O grade only", third.GradeDistribution)
	}
}

func TestComputeCGPAZeroGrades(t *testing.T) {
	db, _, student, _ := setupTestDB(t)
	svc := NewAggregationService(db)

	result, err := svc.ComputeCGPA(context.Background(), student.ID, GradeFilters{})
	if err != nil {
		t.Fatalf("ComputeCGPA on zero grades must not fail: %v", err)
	}
	if result.CGPA != 0 || result.GradesCount != 0 {
		t.Errorf("got CGPA %v over %d grades, want zeros", result.CGPA, result.GradesCount)
	}
	if len(result.SemesterWise) != 0 || len(result.OverallGrades) != 0 {
		t.Error("zero-grade result must carry empty arrays")
	}
}
