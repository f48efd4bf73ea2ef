package model

import (
	"time"
)

// Examination types
const (
	ExamRegular       = "Regular"
	ExamSupplementary = "Supplementary"
	ExamImprovement   = "Improvement"
)

// GradeAbsent is the letter recorded for an absent student. It is never
// produced by the marks scale; it is assigned explicitly on the write path.
const GradeAbsent = "Ab"

// PassingGradePoints is the minimum grade point value considered a pass.
const PassingGradePoints = 4.0

// Grade represents a student's marks for a subject in one examination attempt.
// The (student, subject, exam type) triple is unique; Total, GradeLetter and
// GradePoints are derived from the marks and are never supplied by callers.
type Grade struct {
	// No soft delete here: grades are hard-deleted, and a tombstone would
	// collide with the composite unique index on the attempt key.
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StudentID uint   `gorm:"not null;index;uniqueIndex:idx_grade_attempt" json:"student_id"`
	SubjectID uint   `gorm:"not null;index;uniqueIndex:idx_grade_attempt" json:"subject_id"`
	ExamType  string `gorm:"type:varchar(20);not null;default:'Regular';uniqueIndex:idx_grade_attempt" json:"exam_type"`

	TheoryMarks    float64 `gorm:"not null;default:0" json:"theory_marks"`    // 0-100
	PracticalMarks float64 `gorm:"not null;default:0" json:"practical_marks"` // 0-100
	InternalMarks  float64 `gorm:"not null;default:0" json:"internal_marks"`  // 0-100

	// Derived fields, recomputed by Recalculate before every persistence
	Total       float64 `gorm:"not null;default:0" json:"total"` // 0-300
	GradeLetter string  `gorm:"type:varchar(3);not null;default:'F'" json:"grade"`
	GradePoints float64 `gorm:"not null;default:0" json:"grade_points"`

	Semester     int        `gorm:"not null" json:"semester"` // 1-8
	AcademicYear string     `gorm:"type:varchar(9);not null" json:"academic_year"`
	IsAbsent     bool       `gorm:"not null;default:false" json:"is_absent"`
	IsPublished  bool       `gorm:"not null;default:false;index" json:"is_published"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Remarks      string     `gorm:"type:text" json:"remarks,omitempty"`
	GradedByID   *uint      `json:"graded_by_id,omitempty"`

	// Relationships
	Student  *User    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Subject  *Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	GradedBy *User    `gorm:"foreignKey:GradedByID" json:"graded_by,omitempty"`
}

// GradeScale maps a total mark (0-300) to its letter grade and point value.
func GradeScale(total float64) (string, float64) {
	switch {
	case total >= 90:
		return "O", 10
	case total >= 80:
		return "A+", 9
	case total >= 70:
		return "A", 8
	case total >= 60:
		return "B+", 7
	case total >= 55:
		return "B", 6
	case total >= 50:
		return "C", 5
	case total >= 40:
		return "P", 4
	default:
		return "F", 0
	}
}

// IsPassing reports whether a grade point value counts as a pass.
func IsPassing(points float64) bool {
	return points >= PassingGradePoints
}

// Recalculate recomputes the derived fields from the marks. It must run on
// every create/update of marks, before persistence; it is idempotent. An
// absent attempt is graded Ab with zero points and a zero total, whatever
// marks were submitted alongside the flag.
func (g *Grade) Recalculate() {
	if g.IsAbsent {
		g.Total = 0
		g.GradeLetter = GradeAbsent
		g.GradePoints = 0
		return
	}
	g.Total = g.TheoryMarks + g.PracticalMarks + g.InternalMarks
	g.GradeLetter, g.GradePoints = GradeScale(g.Total)
}

// IsPass reports whether this grade counts as passing.
func (g *Grade) IsPass() bool {
	return IsPassing(g.GradePoints)
}

// ValidExamType checks an exam type against the allowed set.
func ValidExamType(examType string) bool {
	switch examType {
	case ExamRegular, ExamSupplementary, ExamImprovement:
		return true
	}
	return false
}

// GradeLetters lists every letter the scale can produce, plus Ab, in
// descending order. Used for grade distribution reports.
func GradeLetters() []string {
	return []string{"O", "A+", "A", "B+", "B", "C", "P", "F", GradeAbsent}
}
