package shared

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type correctionInput struct {
	Incorrect string `json:"incorrect" validate:"required,max=10"`
	Correct   string `json:"correct" validate:"required"`
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		input     correctionInput
		wantErr   bool
		wantField string
	}{
		{name: "valid", input: correctionInput{Incorrect: "teh", Correct: "the"}},
		{name: "missing incorrect", input: correctionInput{Correct: "the"}, wantErr: true, wantField: "incorrect"},
		{name: "missing correct", input: correctionInput{Incorrect: "teh"}, wantErr: true, wantField: "correct"},
		{name: "too long", input: correctionInput{Incorrect: "abcdefghijkl", Correct: "x"}, wantErr: true, wantField: "incorrect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError, got %T", err)
			}
			if httpErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", httpErr.Code)
			}
			apiErr := httpErr.Message.(*APIError)
			if apiErr.Code != "validation_failed" {
				t.Errorf("expected validation_failed, got %s", apiErr.Code)
			}
			if !strings.Contains(apiErr.Message, tt.wantField) {
				t.Errorf("expected message to name %s, got %s", tt.wantField, apiErr.Message)
			}
		})
	}
}
