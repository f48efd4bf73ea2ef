package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/apperror"
	"github.com/acadex/acadex-api/utils/cache"
)

// analyticsCacheTTL bounds how stale a cached report may be.
const analyticsCacheTTL = 5 * time.Minute

// AnalyticsService builds read-only reporting views on top of the aggregation
// engine and plain grouping counts. Reports never mutate anything.
type AnalyticsService struct {
	db          *gorm.DB
	cache       *cache.RedisCache // nil disables caching
	aggregation *AggregationService
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(db *gorm.DB, redisCache *cache.RedisCache, aggregation *AggregationService) *AnalyticsService {
	return &AnalyticsService{
		db:          db,
		cache:       redisCache,
		aggregation: aggregation,
	}
}

// PerformanceResult summarizes published grades for a subject or department.
// Passing uses the same definition as the grade scale: points >= 4.
type PerformanceResult struct {
	TotalGrades       int            `json:"total_grades"`
	PassingGrades     int            `json:"passing_grades"`
	PassRate          float64        `json:"pass_rate"` // percent, 2dp
	AverageTotal      float64        `json:"average_total"`
	AveragePoints     float64        `json:"average_points"`
	HighestTotal      float64        `json:"highest_total"`
	LowestTotal       float64        `json:"lowest_total"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

// SubjectPerformanceResult is the per-subject report.
type SubjectPerformanceResult struct {
	SubjectID   uint   `json:"subject_id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Credits     int    `json:"credits"`
	Semester    int    `json:"semester"`
	PerformanceResult
}

// DepartmentPerformanceResult is the department-wide report.
type DepartmentPerformanceResult struct {
	DepartmentID   uint                       `json:"department_id"`
	DepartmentCode string                     `json:"department_code"`
	Overall        PerformanceResult          `json:"overall"`
	Subjects       []SubjectPerformanceResult `json:"subjects"`
}

// gradeRow is the minimal slice of a grade the performance math needs.
type gradeRow struct {
	Total  float64
	Points float64
	Letter string
}

// computePerformance folds grade rows into a performance summary. Pure; the
// distribution always carries every letter so charts have stable keys.
func computePerformance(rows []gradeRow) PerformanceResult {
	result := PerformanceResult{
		GradeDistribution: make(map[string]int, len(model.GradeLetters())),
	}
	for _, letter := range model.GradeLetters() {
		result.GradeDistribution[letter] = 0
	}
	if len(rows) == 0 {
		return result
	}

	var sumTotal, sumPoints float64
	result.HighestTotal = rows[0].Total
	result.LowestTotal = rows[0].Total

	for _, row := range rows {
		result.TotalGrades++
		if model.IsPassing(row.Points) {
			result.PassingGrades++
		}
		sumTotal += row.Total
		sumPoints += row.Points
		if row.Total > result.HighestTotal {
			result.HighestTotal = row.Total
		}
		if row.Total < result.LowestTotal {
			result.LowestTotal = row.Total
		}
		result.GradeDistribution[row.Letter]++
	}

	n := float64(result.TotalGrades)
	result.PassRate = round2(float64(result.PassingGrades) / n * 100)
	result.AverageTotal = round2(sumTotal / n)
	result.AveragePoints = round2(sumPoints / n)
	return result
}

func (s *AnalyticsService) publishedRows(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]gradeRow, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Grade{}).
		Select("grades.total AS total, grades.grade_points AS points, grades.grade_letter AS letter").
		Where("grades.is_published = ?", true)
	query = scope(query)

	var rows []gradeRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SubjectPerformance reports pass rate and grade distribution for one subject.
func (s *AnalyticsService) SubjectPerformance(ctx context.Context, actor *model.User, subjectID uint, filters GradeFilters) (*SubjectPerformanceResult, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("subject")
		}
		return nil, err
	}

	if !CanAccess(actor, ActionRead, SubjectResource(&subject)) {
		return nil, apperror.Forbidden("not allowed to view this subject's performance")
	}

	cacheKey := fmt.Sprintf("analytics:subject_perf:%d:%d:%s", subjectID, filters.Semester, filters.AcademicYear)
	var cached SubjectPerformanceResult
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	rows, err := s.publishedRows(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("grades.subject_id = ?", subjectID)
		if filters.Semester > 0 {
			q = q.Where("grades.semester = ?", filters.Semester)
		}
		if filters.AcademicYear != "" {
			q = q.Where("grades.academic_year = ?", filters.AcademicYear)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	result := &SubjectPerformanceResult{
		SubjectID:         subject.ID,
		SubjectCode:       subject.Code,
		SubjectName:       subject.Name,
		Credits:           subject.Credits,
		Semester:          subject.Semester,
		PerformanceResult: computePerformance(rows),
	}

	s.cacheSet(ctx, cacheKey, result)
	return result, nil
}

// DepartmentPerformance reports the department-wide summary plus a per-subject
// breakdown.
func (s *AnalyticsService) DepartmentPerformance(ctx context.Context, actor *model.User, departmentID uint, filters GradeFilters) (*DepartmentPerformanceResult, error) {
	var dept model.Department
	if err := s.db.WithContext(ctx).First(&dept, departmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("department")
		}
		return nil, err
	}

	if !CanAccess(actor, ActionRead, DepartmentResource(&dept)) {
		return nil, apperror.Forbidden("not allowed to view this department's performance")
	}

	cacheKey := fmt.Sprintf("analytics:dept_perf:%d:%d:%s", departmentID, filters.Semester, filters.AcademicYear)
	var cached DepartmentPerformanceResult
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	subjectQuery := s.db.WithContext(ctx).Where("department_id = ?", departmentID)
	if filters.Semester > 0 {
		subjectQuery = subjectQuery.Where("semester = ?", filters.Semester)
	}
	if filters.AcademicYear != "" {
		subjectQuery = subjectQuery.Where("academic_year = ?", filters.AcademicYear)
	}

	var subjects []model.Subject
	if err := subjectQuery.Order("semester ASC, code ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}

	result := &DepartmentPerformanceResult{
		DepartmentID:   dept.ID,
		DepartmentCode: dept.Code,
		Subjects:       []SubjectPerformanceResult{},
	}

	var allRows []gradeRow
	for _, subject := range subjects {
		rows, err := s.publishedRows(ctx, func(q *gorm.DB) *gorm.DB {
			return q.Where("grades.subject_id = ?", subject.ID)
		})
		if err != nil {
			return nil, err
		}
		allRows = append(allRows, rows...)
		result.Subjects = append(result.Subjects, SubjectPerformanceResult{
			SubjectID:         subject.ID,
			SubjectCode:       subject.Code,
			SubjectName:       subject.Name,
			Credits:           subject.Credits,
			Semester:          subject.Semester,
			PerformanceResult: computePerformance(rows),
		})
	}
	result.Overall = computePerformance(allRows)

	s.cacheSet(ctx, cacheKey, result)
	return result, nil
}

// TrendBucket is one month of grading activity.
type TrendBucket struct {
	Month         string  `json:"month"` // "2026-03"
	GradesEntered int     `json:"grades_entered"`
	Published     int     `json:"published"`
	AveragePoints float64 `json:"average_points"`
	PassRate      float64 `json:"pass_rate"`
}

// TrendReport buckets grading activity by month over the lookback window.
// Allowed windows are 1, 3, 6 and 12 months. The query is pre-scoped to what
// the actor may see.
func (s *AnalyticsService) TrendReport(ctx context.Context, actor *model.User, months int) ([]TrendBucket, error) {
	switch months {
	case 1, 3, 6, 12:
	default:
		return nil, apperror.Validation("months", "must be one of: 1, 3, 6, 12")
	}

	since := time.Now().AddDate(0, -months, 0)
	base := s.db.WithContext(ctx).
		Model(&model.Grade{}).
		Where("grades.created_at >= ?", since)
	query, err := ScopeGrades(actor, base)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		CreatedAt   time.Time
		IsPublished bool
		GradePoints float64
	}
	if err := query.
		Select("grades.created_at, grades.is_published, grades.grade_points").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return bucketByMonth(rows, since, months), nil
}

// bucketByMonth distributes grade rows into one bucket per calendar month,
// oldest first, including empty months so charts have a continuous axis.
func bucketByMonth(rows []struct {
	CreatedAt   time.Time
	IsPublished bool
	GradePoints float64
}, since time.Time, months int) []TrendBucket {
	buckets := make([]TrendBucket, 0, months+1)
	index := make(map[string]int)

	cursor := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Now()
	for !cursor.After(end) {
		key := cursor.Format("2006-01")
		index[key] = len(buckets)
		buckets = append(buckets, TrendBucket{Month: key})
		cursor = cursor.AddDate(0, 1, 0)
	}

	sums := make([]float64, len(buckets))
	passes := make([]int, len(buckets))
	for _, row := range rows {
		key := row.CreatedAt.Format("2006-01")
		i, ok := index[key]
		if !ok {
			continue
		}
		buckets[i].GradesEntered++
		if row.IsPublished {
			buckets[i].Published++
		}
		sums[i] += row.GradePoints
		if model.IsPassing(row.GradePoints) {
			passes[i]++
		}
	}

	for i := range buckets {
		if buckets[i].GradesEntered > 0 {
			n := float64(buckets[i].GradesEntered)
			buckets[i].AveragePoints = round2(sums[i] / n)
			buckets[i].PassRate = round2(float64(passes[i]) / n * 100)
		}
	}

	return buckets
}

// Dashboard payloads per role.

type AdminDashboard struct {
	TotalStudents    int64 `json:"total_students"`
	TotalTeachers    int64 `json:"total_teachers"`
	TotalHODs        int64 `json:"total_hods"`
	TotalDepartments int64 `json:"total_departments"`
	TotalSubjects    int64 `json:"total_subjects"`
	TotalGrades      int64 `json:"total_grades"`
	PublishedGrades  int64 `json:"published_grades"`
	GradesThisWeek   int64 `json:"grades_this_week"`
}

type HODDashboard struct {
	DepartmentID   uint              `json:"department_id"`
	DepartmentName string            `json:"department_name"`
	Students       int64             `json:"students"`
	Teachers       int64             `json:"teachers"`
	Subjects       int64             `json:"subjects"`
	PendingPublish int64             `json:"pending_publish"`
	Overall        PerformanceResult `json:"overall"`
}

type TeacherDashboard struct {
	AssignedSubjects int64 `json:"assigned_subjects"`
	GradesEntered    int64 `json:"grades_entered"`
	PendingPublish   int64 `json:"pending_publish"`
	PublishedGrades  int64 `json:"published_grades"`
}

type StudentDashboard struct {
	PublishedGrades int64       `json:"published_grades"`
	CGPA            *CGPAResult `json:"cgpa"`
}

// Dashboard returns the role-specific summary for the actor.
func (s *AnalyticsService) Dashboard(ctx context.Context, actor *model.User) (interface{}, error) {
	if actor == nil {
		return nil, apperror.Forbidden("not authenticated")
	}

	switch actor.Role {
	case model.RoleAdmin:
		return s.adminDashboard(ctx)
	case model.RoleHOD:
		return s.hodDashboard(ctx, actor)
	case model.RoleTeacher:
		return s.teacherDashboard(ctx, actor)
	case model.RoleStudent:
		return s.studentDashboard(ctx, actor)
	}
	return nil, apperror.Forbidden("unknown role")
}

func (s *AnalyticsService) adminDashboard(ctx context.Context) (*AdminDashboard, error) {
	cacheKey := "analytics:dashboard:admin"
	var cached AdminDashboard
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	db := s.db.WithContext(ctx)
	stats := &AdminDashboard{}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalStudents, db.Model(&model.User{}).Where("role = ?", model.RoleStudent)},
		{&stats.TotalTeachers, db.Model(&model.User{}).Where("role = ?", model.RoleTeacher)},
		{&stats.TotalHODs, db.Model(&model.User{}).Where("role = ?", model.RoleHOD)},
		{&stats.TotalDepartments, db.Model(&model.Department{})},
		{&stats.TotalSubjects, db.Model(&model.Subject{})},
		{&stats.TotalGrades, db.Model(&model.Grade{})},
		{&stats.PublishedGrades, db.Model(&model.Grade{}).Where("is_published = ?", true)},
		{&stats.GradesThisWeek, db.Model(&model.Grade{}).Where("created_at >= ?", time.Now().AddDate(0, 0, -7))},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	s.cacheSet(ctx, cacheKey, stats)
	return stats, nil
}

func (s *AnalyticsService) hodDashboard(ctx context.Context, actor *model.User) (*HODDashboard, error) {
	if actor.DepartmentID == nil {
		return nil, apperror.Forbidden("no department assigned")
	}
	deptID := *actor.DepartmentID

	var dept model.Department
	if err := s.db.WithContext(ctx).First(&dept, deptID).Error; err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	stats := &HODDashboard{DepartmentID: dept.ID, DepartmentName: dept.Name}

	if err := db.Model(&model.User{}).
		Where("department_id = ? AND role = ?", deptID, model.RoleStudent).
		Count(&stats.Students).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.User{}).
		Where("department_id = ? AND role = ?", deptID, model.RoleTeacher).
		Count(&stats.Teachers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Subject{}).
		Where("department_id = ?", deptID).
		Count(&stats.Subjects).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Grade{}).
		Joins("JOIN subjects ON subjects.id = grades.subject_id").
		Where("subjects.department_id = ? AND grades.is_published = ?", deptID, false).
		Count(&stats.PendingPublish).Error; err != nil {
		return nil, err
	}

	rows, err := s.publishedRows(ctx, func(q *gorm.DB) *gorm.DB {
		return q.
			Joins("JOIN subjects ON subjects.id = grades.subject_id").
			Where("subjects.department_id = ?", deptID)
	})
	if err != nil {
		return nil, err
	}
	stats.Overall = computePerformance(rows)

	return stats, nil
}

func (s *AnalyticsService) teacherDashboard(ctx context.Context, actor *model.User) (*TeacherDashboard, error) {
	db := s.db.WithContext(ctx)
	stats := &TeacherDashboard{}

	if err := db.Model(&model.Subject{}).
		Where("teacher_id = ?", actor.ID).
		Count(&stats.AssignedSubjects).Error; err != nil {
		return nil, err
	}

	gradeQuery := db.Model(&model.Grade{}).
		Joins("JOIN subjects ON subjects.id = grades.subject_id").
		Where("subjects.teacher_id = ?", actor.ID)
	if err := gradeQuery.Count(&stats.GradesEntered).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Grade{}).
		Joins("JOIN subjects ON subjects.id = grades.subject_id").
		Where("subjects.teacher_id = ? AND grades.is_published = ?", actor.ID, false).
		Count(&stats.PendingPublish).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Grade{}).
		Joins("JOIN subjects ON subjects.id = grades.subject_id").
		Where("subjects.teacher_id = ? AND grades.is_published = ?", actor.ID, true).
		Count(&stats.PublishedGrades).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *AnalyticsService) studentDashboard(ctx context.Context, actor *model.User) (*StudentDashboard, error) {
	stats := &StudentDashboard{}

	if err := s.db.WithContext(ctx).Model(&model.Grade{}).
		Where("student_id = ? AND is_published = ?", actor.ID, true).
		Count(&stats.PublishedGrades).Error; err != nil {
		return nil, err
	}

	cgpa, err := s.aggregation.ComputeCGPA(ctx, actor.ID, GradeFilters{})
	if err != nil {
		return nil, err
	}
	stats.CGPA = cgpa

	return stats, nil
}

// WarmDepartmentCaches recomputes and caches the performance report for every
// active department. Called by the scheduler.
func (s *AnalyticsService) WarmDepartmentCaches(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	var departments []model.Department
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&departments).Error; err != nil {
		return 0, err
	}

	// Warm with an admin-equivalent system actor.
	system := &model.User{Role: model.RoleAdmin, IsActive: true}
	warmed := 0
	for _, dept := range departments {
		if _, err := s.DepartmentPerformance(ctx, system, dept.ID, GradeFilters{}); err != nil {
			return warmed, err
		}
		warmed++
	}
	return warmed, nil
}

// InvalidateGradeCaches drops cached analytics after a grade mutation.
func (s *AnalyticsService) InvalidateGradeCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "analytics:*"); err != nil {
		log.Printf("[ANALYTICS] cache invalidation failed: %v", err)
	}
}

func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.GetJSON(ctx, key, dest) == nil
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, analyticsCacheTTL); err != nil {
		log.Printf("[ANALYTICS] cache write failed for %s: %v", key, err)
	}
}
