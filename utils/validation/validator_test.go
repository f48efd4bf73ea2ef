package validation

import "testing"

func TestValidateAcademicYear(t *testing.T) {
	valid := []string{"2024-2025", "1999-2000", "2025-2026"}
	for _, year := range valid {
		if !ValidateAcademicYear(year) {
			t.Errorf("ValidateAcademicYear(%q) = false, want true", year)
		}
	}

	invalid := []string{
		"",
		"2024",
		"2024-2026",  // not consecutive
		"2025-2024",  // reversed
		"2024-25",    // short second year
		"24-25",      // short both
		"2024/2025",  // wrong separator
		" 2024-2025", // stray whitespace
	}
	for _, year := range invalid {
		if ValidateAcademicYear(year) {
			t.Errorf("ValidateAcademicYear(%q) = true, want false", year)
		}
	}
}

func TestValidatorAcademicYearTag(t *testing.T) {
	type payload struct {
		Year string `validate:"required,academic_year"`
	}

	v := NewValidator()

	if err := v.ValidateStruct(payload{Year: "2024-2025"}); err != nil {
		t.Errorf("valid year rejected: %v", err)
	}
	if err := v.ValidateStruct(payload{Year: "2024-2027"}); err == nil {
		t.Error("non-consecutive year accepted")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00 world  "); got != "hello world" {
		t.Errorf("SanitizeString = %q, want %q", got, "hello world")
	}
}
