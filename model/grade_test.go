package model

import "testing"

func TestGradeScale(t *testing.T) {
	tests := []struct {
		name       string
		total      float64
		wantLetter string
		wantPoints float64
	}{
		{"zero", 0, "F", 0},
		{"just below pass", 39.99, "F", 0},
		{"pass boundary", 40, "P", 4},
		{"top of P band", 49.99, "P", 4},
		{"C boundary", 50, "C", 5},
		{"top of C band", 54.99, "C", 5},
		{"B boundary", 55, "B", 6},
		{"top of B band", 59.99, "B", 6},
		{"B+ boundary", 60, "B+", 7},
		{"top of B+ band", 69.99, "B+", 7},
		{"A boundary", 70, "A", 8},
		{"top of A band", 79.99, "A", 8},
		{"A+ boundary", 80, "A+", 9},
		{"top of A+ band", 89.99, "A+", 9},
		{"O boundary", 90, "O", 10},
		{"maximum", 100, "O", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			letter, points := GradeScale(tt.total)
			if letter != tt.wantLetter || points != tt.wantPoints {
				t.Errorf("GradeScale(%v) = (%q, %v), want (%q, %v)",
					tt.total, letter, points, tt.wantLetter, tt.wantPoints)
			}
		})
	}
}

func TestRecalculate(t *testing.T) {
	t.Run("derives total letter and points", func(t *testing.T) {
		g := Grade{TheoryMarks: 85, PracticalMarks: 90, InternalMarks: 95}
		g.Recalculate()

		if g.Total != 270 {
			t.Errorf("Total = %v, want 270", g.Total)
		}
		if g.GradeLetter != "O" {
			t.Errorf("GradeLetter = %q, want O", g.GradeLetter)
		}
		if g.GradePoints != 10 {
			t.Errorf("GradePoints = %v, want 10", g.GradePoints)
		}
	})

	t.Run("absent overrides everything", func(t *testing.T) {
		g := Grade{TheoryMarks: 85, PracticalMarks: 90, InternalMarks: 95, IsAbsent: true}
		g.Recalculate()

		if g.GradeLetter != GradeAbsent {
			t.Errorf("GradeLetter = %q, want %q", g.GradeLetter, GradeAbsent)
		}
		if g.GradePoints != 0 {
			t.Errorf("GradePoints = %v, want 0", g.GradePoints)
		}
		if g.Total != 0 {
			t.Errorf("Total = %v, want 0", g.Total)
		}
	})

	t.Run("failing total", func(t *testing.T) {
		g := Grade{TheoryMarks: 12, PracticalMarks: 10, InternalMarks: 15}
		g.Recalculate()

		if g.GradeLetter != "F" {
			t.Errorf("GradeLetter = %q, want F", g.GradeLetter)
		}
		if IsPassing(g.GradePoints) {
			t.Error("a failing grade must not be passing")
		}
	})
}

func TestIsPassing(t *testing.T) {
	if IsPassing(3.99) {
		t.Error("points below 4 must not pass")
	}
	if !IsPassing(4) {
		t.Error("exactly 4 points passes")
	}
	if !IsPassing(10) {
		t.Error("10 points passes")
	}
}

func TestValidExamType(t *testing.T) {
	for _, examType := range []string{ExamRegular, ExamSupplementary, ExamImprovement} {
		if !ValidExamType(examType) {
			t.Errorf("ValidExamType(%q) = false, want true", examType)
		}
	}
	for _, examType := range []string{"", "final", "REGULAR"} {
		if ValidExamType(examType) {
			t.Errorf("ValidExamType(%q) = true, want false", examType)
		}
	}
}
