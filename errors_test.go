package cartridge

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	schema := &SchemaError{Subject: "plan", Violations: []Violation{
		{Where: "course", Message: "title is required"},
		{Message: "at least one unit is required"},
	}}
	missing := &FileSetError{Kind: ErrMissingFile, Paths: []string{"a", "b"}}
	unexpected := &FileSetError{Kind: ErrUnexpectedFile, Paths: []string{"z"}}
	proc := &ProcessError{Command: "zstd -c", ExitCode: 1, Stderr: "out of space\n", Err: &exec.ExitError{}}

	tests := []struct {
		name string
		err  error
		is   error
		not  error
		msg  string
	}{
		{"schema", schema, ErrSchema, ErrMissingFile,
			"schema validation failed: plan: course: title is required; at least one unit is required"},
		{"missing", missing, ErrMissingFile, ErrUnexpectedFile, "missing file payload: a, b"},
		{"unexpected", unexpected, ErrUnexpectedFile, ErrMissingFile, "unexpected file input: z"},
		{"process", proc, ErrCompression, ErrArchiveWrite,
			"compression process failed: zstd -c exited with code 1: out of space"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("build: %w", tt.err)
			if !errors.Is(wrapped, tt.is) {
				t.Errorf("errors.Is(%v) = false", tt.is)
			}
			if errors.Is(wrapped, tt.not) {
				t.Errorf("errors.Is(%v) = true", tt.not)
			}
			if got := tt.err.Error(); got != tt.msg {
				t.Errorf("Error() = %q, want %q", got, tt.msg)
			}
		})
	}

	var exit *exec.ExitError
	if !errors.As(proc, &exit) {
		t.Error("ProcessError does not unwrap to its cause")
	}
}
