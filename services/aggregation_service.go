package services

import (
	"context"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/apperror"
)

// AggregationService computes SGPA/CGPA metrics over published grades.
type AggregationService struct {
	db *gorm.DB
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(db *gorm.DB) *AggregationService {
	return &AggregationService{db: db}
}

// GradeFilters narrows a CGPA computation to one semester or academic year.
type GradeFilters struct {
	Semester     int
	AcademicYear string
}

// CGPAResult is the full aggregation output.
type CGPAResult struct {
	CGPA          float64          `json:"cgpa"`
	TotalCredits  int              `json:"total_credits"`
	GradesCount   int              `json:"grades_count"`
	SemesterWise  []SemesterResult `json:"semester_wise"`
	OverallGrades []GradeSummary   `json:"overall_grades"`
}

// SemesterResult is the per-semester breakdown.
type SemesterResult struct {
	Semester    int     `json:"semester"`
	SGPA        float64 `json:"sgpa"`
	Credits     int     `json:"credits"`
	GradesCount int     `json:"grades_count"`
}

// GradeSummary is one contributing grade in the overall listing.
type GradeSummary struct {
	SubjectCode string  `json:"subject_code"`
	SubjectName string  `json:"subject_name"`
	ExamType    string  `json:"exam_type"`
	Semester    int     `json:"semester"`
	Credits     int     `json:"credits"`
	Grade       string  `json:"grade"`
	GradePoints float64 `json:"grade_points"`
}

// gradeCredit is the minimal record the pure aggregation core works on.
type gradeCredit struct {
	Points   float64
	Credits  int
	Semester int
	Summary  GradeSummary
}

// ComputeCGPA computes the credit-weighted CGPA and per-semester SGPA for a
// student from their published grades. "No published grades" is a valid state
// and yields a zero-valued result, never an error.
func (s *AggregationService) ComputeCGPA(ctx context.Context, studentID uint, filters GradeFilters) (*CGPAResult, error) {
	var student model.User
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.NotFound("student")
		}
		return nil, err
	}
	if student.Role != model.RoleStudent {
		return nil, apperror.Validation("student_id", "user is not a student")
	}

	query := s.db.WithContext(ctx).
		Preload("Subject").
		Where("student_id = ? AND is_published = ?", studentID, true)
	if filters.Semester > 0 {
		query = query.Where("semester = ?", filters.Semester)
	}
	if filters.AcademicYear != "" {
		query = query.Where("academic_year = ?", filters.AcademicYear)
	}

	var grades []model.Grade
	if err := query.Order("semester ASC, subject_id ASC").Find(&grades).Error; err != nil {
		return nil, err
	}

	records := make([]gradeCredit, 0, len(grades))
	for _, g := range grades {
		rec := gradeCredit{
			Points:   g.GradePoints,
			Semester: g.Semester,
			Summary: GradeSummary{
				ExamType:    g.ExamType,
				Semester:    g.Semester,
				Grade:       g.GradeLetter,
				GradePoints: g.GradePoints,
			},
		}
		if g.Subject != nil {
			rec.Credits = g.Subject.Credits
			rec.Summary.SubjectCode = g.Subject.Code
			rec.Summary.SubjectName = g.Subject.Name
			rec.Summary.Credits = g.Subject.Credits
		}
		records = append(records, rec)
	}

	return aggregate(records), nil
}

// aggregate folds grade records into the CGPA result. The overall CGPA is
// credit-weighted over every individual grade at full precision; per-semester
// SGPA values are rounded for display only and never feed the overall sum,
// which is why this is not a mean of SGPAs.
func aggregate(records []gradeCredit) *CGPAResult {
	result := &CGPAResult{
		SemesterWise:  []SemesterResult{},
		OverallGrades: []GradeSummary{},
	}
	if len(records) == 0 {
		return result
	}

	type bucket struct {
		points  float64
		credits int
		count   int
	}
	semesters := make(map[int]*bucket)

	var overallPoints float64
	var overallCredits int

	for _, rec := range records {
		overallPoints += rec.Points * float64(rec.Credits)
		overallCredits += rec.Credits

		b, ok := semesters[rec.Semester]
		if !ok {
			b = &bucket{}
			semesters[rec.Semester] = b
		}
		b.points += rec.Points * float64(rec.Credits)
		b.credits += rec.Credits
		b.count++

		result.OverallGrades = append(result.OverallGrades, rec.Summary)
	}

	result.GradesCount = len(records)
	result.TotalCredits = overallCredits
	// Filters can leave zero total credits; that is a zero CGPA, not a NaN.
	if overallCredits > 0 {
		result.CGPA = round2(overallPoints / float64(overallCredits))
	}

	semesterNumbers := make([]int, 0, len(semesters))
	for sem := range semesters {
		semesterNumbers = append(semesterNumbers, sem)
	}
	sort.Ints(semesterNumbers)

	for _, sem := range semesterNumbers {
		b := semesters[sem]
		sgpa := 0.0
		if b.credits > 0 {
			sgpa = round2(b.points / float64(b.credits))
		}
		result.SemesterWise = append(result.SemesterWise, SemesterResult{
			Semester:    sem,
			SGPA:        sgpa,
			Credits:     b.credits,
			GradesCount: b.count,
		})
	}

	return result
}

// round2 rounds to two decimal places for display.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
