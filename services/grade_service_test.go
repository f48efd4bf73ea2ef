package services

import (
	"errors"
	"testing"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/apperror"
)

func TestValidateMarks(t *testing.T) {
	base := UpsertGradeInput{
		StudentID: 1, SubjectID: 2, ExamType: model.ExamRegular,
		TheoryMarks: 50, PracticalMarks: 50, InternalMarks: 50,
	}

	t.Run("accepts in-range marks", func(t *testing.T) {
		if err := validateMarks(base); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("accepts boundary values", func(t *testing.T) {
		in := base
		in.TheoryMarks = 0
		in.PracticalMarks = 100
		if err := validateMarks(in); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects negative marks naming the field", func(t *testing.T) {
		in := base
		in.PracticalMarks = -1
		err := validateMarks(in)
		if !apperror.IsValidation(err) {
			t.Fatalf("want validation error, got %v", err)
		}
		var ve *apperror.ValidationError
		if !errors.As(err, &ve) || ve.Field != "practical_marks" {
			t.Errorf("error does not identify practical_marks: %v", err)
		}
	})

	t.Run("rejects marks above 100", func(t *testing.T) {
		in := base
		in.InternalMarks = 100.01
		if !apperror.IsValidation(validateMarks(in)) {
			t.Error("want validation error for internal_marks above 100")
		}
	})

	t.Run("rejects unknown exam type", func(t *testing.T) {
		in := base
		in.ExamType = "midterm"
		if !apperror.IsValidation(validateMarks(in)) {
			t.Error("want validation error for exam type")
		}
	})
}
