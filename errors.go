// Package cartridge packages a hierarchical course (units, lessons and their
// article, quiz and video resources) into a single zstd-compressed POSIX tar
// archive, and reads it back path by path.
//
// An archive is written once from a complete plan. The plan is validated
// end to end before a single byte is produced: every structure is checked,
// then the set of paths the course references is compared against the set
// of content blobs supplied, and both must match exactly. Entries are then
// written in a fixed order (lessons, units, index, content blobs) and the
// archive closes with integrity.json, a size and SHA-256 table covering
// every other entry.
//
// On the read side, Open loads an archive and the typed accessors
// (ReadIndex, ReadUnit, ReadLesson, ...) and iterators (Units,
// UnitLessons, LessonResources) walk it. ValidateIntegrity audits the
// contents against the manifest and reports every problem it finds instead
// of stopping at the first one.
package cartridge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic handling. Build-time failures
// (ErrSchema, ErrMissingFile, ErrUnexpectedFile) are raised before any
// output is written; ErrArchiveWrite and ErrCompression abort a build
// mid-stream; ErrNotFound is scoped to the single read that raised it.
var (
	ErrSchema         = errors.New("schema validation failed")
	ErrMissingFile    = errors.New("missing file payload")
	ErrUnexpectedFile = errors.New("unexpected file input")
	ErrArchiveWrite   = errors.New("archive write failed")
	ErrCompression    = errors.New("compression process failed")
	ErrNotFound       = errors.New("entry not found")
	ErrCorruptArchive = errors.New("corrupt archive")
	ErrInvalidPath    = errors.New("invalid cartridge path")
)

// Violation locates one structural problem in a plan or a decoded archive
// file. Where is a dotted locator such as `units[unit-2].lessons[l3]`.
type Violation struct {
	Where   string
	Message string
}

func (v Violation) String() string {
	if v.Where == "" {
		return v.Message
	}
	return v.Where + ": " + v.Message
}

// SchemaError carries every violation found by a validation pass.
type SchemaError struct {
	Subject    string // what was validated: "plan", "units/unit-1.json", ...
	Violations []Violation
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s: %s", ErrSchema, e.Subject, strings.Join(parts, "; "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// FileSetError reports the paths on one side of the completeness check:
// referenced but not supplied (ErrMissingFile) or supplied but never
// referenced (ErrUnexpectedFile). Paths are sorted.
type FileSetError struct {
	Kind  error
	Paths []string
}

func (e *FileSetError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Paths, ", "))
}

func (e *FileSetError) Is(target error) bool { return target == e.Kind }

// ProcessError reports an external process (compressor or archiver) that
// exited unsuccessfully. Stderr holds whatever the process wrote there.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s: %s exited with code %d", ErrCompression, e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ProcessError) Is(target error) bool { return target == ErrCompression }

func (e *ProcessError) Unwrap() error { return e.Err }
