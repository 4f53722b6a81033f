package tools

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", Validationf("bad input"), KindValidation},
		{"not found", NotFoundf("missing"), KindNotFound},
		{"conflict", Conflictf("duplicate"), KindConflict},
		{"authorization", Authorizationf("denied"), KindAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("executing operation: %w", NotFoundf("project 'X' not found"))
	if KindOf(err) != KindNotFound {
		t.Errorf("wrapped domain error lost its kind: %v", err)
	}
}

func TestDomainErrorMessage(t *testing.T) {
	err := Conflictf("assignment '%s' already exists", "PS4")
	if err.Error() != "assignment 'PS4' already exists" {
		t.Errorf("Error() = %q", err.Error())
	}

	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Kind != KindConflict {
		t.Errorf("kind = %v, want conflict", de.Kind)
	}
}
