package services

import "testing"

func TestAggregateEmpty(t *testing.T) {
	result := aggregate(nil)

	if result.CGPA != 0 {
		t.Errorf("CGPA = %v, want 0", result.CGPA)
	}
	if result.GradesCount != 0 || result.TotalCredits != 0 {
		t.Errorf("counts = (%d grades, %d credits), want zeros", result.GradesCount, result.TotalCredits)
	}
	if result.SemesterWise == nil || len(result.SemesterWise) != 0 {
		t.Errorf("SemesterWise = %v, want empty non-nil slice", result.SemesterWise)
	}
	if result.OverallGrades == nil || len(result.OverallGrades) != 0 {
		t.Errorf("OverallGrades = %v, want empty non-nil slice", result.OverallGrades)
	}
}

// The overall CGPA must be credit-weighted over individual grades, not a mean
// of per-semester SGPAs: 4 credits of O (10) and 2 credits of P (4) in
// different semesters give (10*4+4*2)/6 = 8.0 while the SGPA mean is 7.0.
func TestAggregateCreditWeighted(t *testing.T) {
	records := []gradeCredit{
		{Points: 10, Credits: 4, Semester: 1},
		{Points: 4, Credits: 2, Semester: 2},
	}

	result := aggregate(records)

	if result.CGPA != 8.0 {
		t.Errorf("CGPA = %v, want 8.0 (credit-weighted, not SGPA mean 7.0)", result.CGPA)
	}
	if result.TotalCredits != 6 {
		t.Errorf("TotalCredits = %d, want 6", result.TotalCredits)
	}
	if len(result.SemesterWise) != 2 {
		t.Fatalf("SemesterWise has %d entries, want 2", len(result.SemesterWise))
	}
	if result.SemesterWise[0].SGPA != 10.0 || result.SemesterWise[1].SGPA != 4.0 {
		t.Errorf("SGPAs = (%v, %v), want (10.0, 4.0)",
			result.SemesterWise[0].SGPA, result.SemesterWise[1].SGPA)
	}
}

func TestAggregateSemesterOrdering(t *testing.T) {
	records := []gradeCredit{
		{Points: 8, Credits: 3, Semester: 5},
		{Points: 7, Credits: 4, Semester: 1},
		{Points: 9, Credits: 3, Semester: 3},
	}

	result := aggregate(records)

	want := []int{1, 3, 5}
	for i, sem := range want {
		if result.SemesterWise[i].Semester != sem {
			t.Fatalf("SemesterWise[%d].Semester = %d, want %d", i, result.SemesterWise[i].Semester, sem)
		}
	}
}

func TestAggregateRounding(t *testing.T) {
	// (10 + 8 + 7) / 3 = 8.333... rounds to 8.33
	records := []gradeCredit{
		{Points: 10, Credits: 1, Semester: 1},
		{Points: 8, Credits: 1, Semester: 1},
		{Points: 7, Credits: 1, Semester: 1},
	}

	result := aggregate(records)

	if result.CGPA != 8.33 {
		t.Errorf("CGPA = %v, want 8.33", result.CGPA)
	}
}

func TestAggregateZeroCreditGrades(t *testing.T) {
	records := []gradeCredit{
		{Points: 10, Credits: 0, Semester: 1},
	}

	result := aggregate(records)

	if result.CGPA != 0 {
		t.Errorf("CGPA = %v, want 0 when no credits contribute", result.CGPA)
	}
	if result.GradesCount != 1 {
		t.Errorf("GradesCount = %d, want 1", result.GradesCount)
	}
}

func TestAggregateAbsentDragsAverage(t *testing.T) {
	// An absent attempt contributes zero points but its credits still count.
	records := []gradeCredit{
		{Points: 10, Credits: 4, Semester: 1},
		{Points: 0, Credits: 4, Semester: 1},
	}

	result := aggregate(records)

	if result.CGPA != 5.0 {
		t.Errorf("CGPA = %v, want 5.0", result.CGPA)
	}
}
