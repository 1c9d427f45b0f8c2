package validation

import (
	"errors"
	"testing"
)

type uploadRequest struct {
	Group string `validate:"required,min=2"`
	Week  int    `validate:"oneof=1 2"`
}

func TestFormatValidationErrors(t *testing.T) {
	v := NewValidator()

	err := v.ValidateStruct(&uploadRequest{Week: 3})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	fields := FormatValidationErrors(err)
	if got := fields["group"]; got != "Group is required" {
		t.Errorf("group = %q", got)
	}
	if got := fields["week"]; got != "Week must be one of: 1 2" {
		t.Errorf("week = %q", got)
	}
}

func TestFormatValidationErrorsIgnoresOtherErrors(t *testing.T) {
	fields := FormatValidationErrors(errors.New("not a validation error"))
	if len(fields) != 0 {
		t.Errorf("expected empty map, got %v", fields)
	}
}
