// Build plans and the plan compiler.
//
// A plan is a course outline plus the content blobs it references. compile
// turns a plan into the exact, ordered list of archive entries: lessons,
// then units, then the index, then content blobs in the order the outline
// first references them. All checks run before the list is returned, so a
// plan that compiles can only fail later on I/O.
package cartridge

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// Outline is the declarative course tree shared by every plan kind.
type Outline struct {
	GeneratedAt time.Time // zero means time of build
	Generator   Generator
	Course      Course
	Units       []UnitPlan
}

// UnitPlan describes one unit. Lesson UnitID may be left empty; it is
// filled in from the owning unit. Counts are always derived.
type UnitPlan struct {
	ID         string
	UnitNumber int
	Title      string
	Lessons    []Lesson
	UnitTest   *UnitTest
}

// Plan supplies content blobs from memory, keyed by archive path.
type Plan struct {
	Outline
	Files map[string][]byte
}

// FilePlan supplies content blobs from disk: archive path to source file.
type FilePlan struct {
	Outline
	Files map[string]string
}

// blob is one supplied content payload.
type blob interface {
	size() (int64, error)
	open() (io.ReadCloser, error)
}

type memBlob []byte

func (b memBlob) size() (int64, error)         { return int64(len(b)), nil }
func (b memBlob) open() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil }

type fileBlob string

func (f fileBlob) size() (int64, error) {
	info, err := os.Stat(string(f))
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", string(f))
	}
	return info.Size(), nil
}

func (f fileBlob) open() (io.ReadCloser, error) { return os.Open(string(f)) }

// entry is one archive member. Structural entries carry data; content
// entries carry a blob.
type entry struct {
	path string
	data []byte
	src  blob
}

// compiled is a validated plan ready to be written by any sink.
type compiled struct {
	entries []entry
	index   *Index
}

// Counts derives a unit's counts from its lessons and unit test.
func (u *UnitPlan) Counts() Counts {
	c := Counts{LessonCount: len(u.Lessons)}
	for _, l := range u.Lessons {
		c.ResourceCount += len(l.Resources)
		for _, r := range l.Resources {
			if r.Type == TypeQuiz {
				c.QuestionCount += len(r.Questions)
			}
		}
	}
	if u.UnitTest != nil {
		c.QuestionCount += len(u.UnitTest.Questions)
	}
	return c
}

// RequiredPaths lists every content path the outline references, in
// first-reference order without duplicates.
func (o *Outline) RequiredPaths() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	questions := func(qs []QuestionRef) {
		for _, q := range qs {
			add(q.XML)
			add(q.JSON)
		}
	}
	for _, u := range o.Units {
		for _, l := range u.Lessons {
			for _, r := range l.Resources {
				switch r.Type {
				case TypeArticle, TypeVideo:
					add(r.Path)
				case TypeQuiz:
					questions(r.Questions)
				}
			}
		}
		if u.UnitTest != nil {
			add(u.UnitTest.Path)
			questions(u.UnitTest.Questions)
		}
	}
	return out
}

// Validate runs the structural checks alone and returns a *SchemaError
// listing every violation, or nil.
func (o *Outline) Validate() error {
	var c checker
	c.outline(o)
	return c.err("plan")
}

// checkFiles compares the required paths against the supplied ones.
// Missing paths are reported ahead of unexpected ones.
func checkFiles(required []string, supplied map[string]blob) error {
	want := make(map[string]bool, len(required))
	var missing []string
	for _, p := range required {
		want[p] = true
		if _, ok := supplied[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return &FileSetError{Kind: ErrMissingFile, Paths: missing}
	}
	var extra []string
	for p := range supplied {
		if !want[p] {
			extra = append(extra, p)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return &FileSetError{Kind: ErrUnexpectedFile, Paths: extra}
	}
	return nil
}

// compile validates o against the supplied blobs and lays out the archive.
func compile(o *Outline, files map[string]blob, now time.Time) (*compiled, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	required := o.RequiredPaths()
	if err := checkFiles(required, files); err != nil {
		return nil, err
	}

	generatedAt := o.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = now
	}
	idx := &Index{
		Version:     Version,
		GeneratedAt: generatedAt.UTC(),
		Generator:   o.Generator,
		Course:      o.Course,
		Units:       make([]UnitRef, 0, len(o.Units)),
	}

	c := &compiled{index: idx}
	var unitEntries []entry
	for i := range o.Units {
		up := &o.Units[i]
		unit := &Unit{
			ID:         up.ID,
			UnitNumber: up.UnitNumber,
			Title:      up.Title,
			Lessons:    make([]LessonRef, 0, len(up.Lessons)),
			UnitTest:   up.UnitTest,
			Counts:     up.Counts(),
		}
		for j := range up.Lessons {
			lesson := up.Lessons[j]
			lesson.UnitID = up.ID
			if lesson.Resources == nil {
				lesson.Resources = []Resource{}
			}
			path := lessonPath(up.ID, lesson.ID)
			data, err := encodeJSON(&lesson)
			if err != nil {
				return nil, fmt.Errorf("compile: %s: %w", path, err)
			}
			c.entries = append(c.entries, entry{path: path, data: data})
			unit.Lessons = append(unit.Lessons, LessonRef{
				ID:           lesson.ID,
				LessonNumber: lesson.LessonNumber,
				Title:        lesson.Title,
				Path:         path,
			})
		}
		path := unitPath(up.ID)
		data, err := encodeJSON(unit)
		if err != nil {
			return nil, fmt.Errorf("compile: %s: %w", path, err)
		}
		unitEntries = append(unitEntries, entry{path: path, data: data})
		idx.Units = append(idx.Units, UnitRef{ID: up.ID, UnitNumber: up.UnitNumber, Title: up.Title, Path: path})
	}
	c.entries = append(c.entries, unitEntries...)

	data, err := encodeJSON(idx)
	if err != nil {
		return nil, fmt.Errorf("compile: %s: %w", IndexPath, err)
	}
	c.entries = append(c.entries, entry{path: IndexPath, data: data})

	for _, p := range required {
		c.entries = append(c.entries, entry{path: p, src: files[p]})
	}
	return c, nil
}

func (p *Plan) blobs() map[string]blob {
	out := make(map[string]blob, len(p.Files))
	for k, v := range p.Files {
		out[k] = memBlob(v)
	}
	return out
}

func (p *FilePlan) blobs() map[string]blob {
	out := make(map[string]blob, len(p.Files))
	for k, v := range p.Files {
		out[k] = fileBlob(v)
	}
	return out
}
