package apperror

import (
	"database/sql"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad input"), KindValidation},
		{"wrapped not found", fmt.Errorf("loading template: %w", NotFound("rubric template")), KindNotFound},
		{"locked", Locked("evaluation"), KindLocked},
		{"untyped", sql.ErrConnDone, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Unavailable("database unreachable", sql.ErrConnDone)
	want := "database unreachable: " + sql.ErrConnDone.Error()
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, KindUnavailable) {
		t.Error("expected KindUnavailable")
	}
}
