// Structural validation.
//
// Validation never stops at the first problem. Each pass walks the whole
// structure and collects Violations; the caller decides what to do with
// them. Build treats any violation as fatal before writing, while the
// read-side accessors validate each decoded file independently.
package cartridge

import (
	"fmt"
	"maps"
	"path"
	"slices"
)

// checker accumulates violations under a locator prefix.
type checker struct {
	violations []Violation
}

func (c *checker) addf(where, format string, args ...any) {
	c.violations = append(c.violations, Violation{Where: where, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) required(where, field, value string) {
	if value == "" {
		c.addf(where, "%s is required", field)
	}
}

func (c *checker) positive(where, field string, n int) {
	if n < 1 {
		c.addf(where, "%s must be >= 1, got %d", field, n)
	}
}

func (c *checker) path(where, field, p string) {
	if err := ValidPath(p); err != nil {
		c.addf(where, "%s: %v", field, err)
	}
}

// contentPath validates a caller-chosen blob path.
func (c *checker) contentPath(where, field, p string) {
	if err := ValidPath(p); err != nil {
		c.addf(where, "%s: %v", field, err)
		return
	}
	if reserved(p) {
		c.addf(where, "%s: %q is reserved for archive structure", field, p)
	}
}

func (c *checker) err(subject string) error {
	if len(c.violations) == 0 {
		return nil
	}
	return &SchemaError{Subject: subject, Violations: c.violations}
}

func (c *checker) outline(o *Outline) {
	c.required("generator", "name", o.Generator.Name)
	c.required("generator", "version", o.Generator.Version)
	c.required("course", "title", o.Course.Title)
	c.required("course", "subject", o.Course.Subject)
	if len(o.Units) == 0 {
		c.addf("units", "at least one unit is required")
	}

	seen := make(map[string]bool, len(o.Units))
	for i := range o.Units {
		u := &o.Units[i]
		where := fmt.Sprintf("units[%d]", i)
		if u.ID != "" {
			where = fmt.Sprintf("units[%s]", u.ID)
		}
		if ClassifyUnitID(u.ID) == UnitIDInvalid {
			c.addf(where, "id %q is neither unit-<n> nor a lowercase slug", u.ID)
		}
		if seen[u.ID] {
			c.addf(where, "duplicate unit id %q", u.ID)
		}
		seen[u.ID] = true
		c.positive(where, "unitNumber", u.UnitNumber)
		c.required(where, "title", u.Title)
		c.unitPlan(where, u)
	}
	c.nesting(o.RequiredPaths())
}

// nesting rejects a content path that is also a parent directory of
// another. A tar stream can hold both, but no filesystem can extract them.
func (c *checker) nesting(paths []string) {
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		files[p] = true
	}
	for _, p := range paths {
		for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if files[dir] {
				c.addf("files", "%q is both a file and a parent directory of %q", dir, p)
			}
		}
	}
}

func (c *checker) unitPlan(where string, u *UnitPlan) {
	seen := make(map[string]bool, len(u.Lessons))
	for i := range u.Lessons {
		l := &u.Lessons[i]
		lw := fmt.Sprintf("%s.lessons[%d]", where, i)
		if l.ID != "" {
			lw = fmt.Sprintf("%s.lessons[%s]", where, l.ID)
		}
		if seen[l.ID] {
			c.addf(lw, "duplicate lesson id %q", l.ID)
		}
		seen[l.ID] = true
		if l.UnitID != "" && l.UnitID != u.ID {
			c.addf(lw, "unitId %q does not match owning unit %q", l.UnitID, u.ID)
		}
		c.lessonBody(lw, l)
	}
	if u.UnitTest != nil {
		c.unitTest(where+".unitTest", u.UnitTest, true)
	}
}

func (c *checker) lessonBody(where string, l *Lesson) {
	if !slugID.MatchString(l.ID) {
		c.addf(where, "id %q is not a lowercase slug", l.ID)
	}
	c.positive(where, "lessonNumber", l.LessonNumber)
	c.required(where, "title", l.Title)

	seen := make(map[string]bool, len(l.Resources))
	for i := range l.Resources {
		r := &l.Resources[i]
		rw := fmt.Sprintf("%s.resources[%d]", where, i)
		if r.ID != "" {
			rw = fmt.Sprintf("%s.resources[%s]", where, r.ID)
		}
		c.required(rw, "id", r.ID)
		if r.ID != "" && seen[r.ID] {
			c.addf(rw, "duplicate resource id %q", r.ID)
		}
		seen[r.ID] = true
		c.resource(rw, r)
	}
}

func (c *checker) resource(where string, r *Resource) {
	switch r.Type {
	case TypeArticle:
		c.contentPath(where, "path", r.Path)
		if r.QuestionCount != 0 || r.Questions != nil || r.YouTubeID != "" || r.DurationSeconds != 0 {
			c.addf(where, "article carries quiz or video fields")
		}
	case TypeQuiz:
		if r.Path != "" || r.YouTubeID != "" || r.DurationSeconds != 0 {
			c.addf(where, "quiz carries article or video fields")
		}
		c.questions(where, r.QuestionCount, r.Questions)
	case TypeVideo:
		c.contentPath(where, "path", r.Path)
		c.required(where, "youtubeId", r.YouTubeID)
		if r.DurationSeconds < 0 {
			c.addf(where, "durationSeconds must be >= 0, got %v", r.DurationSeconds)
		}
		if r.QuestionCount != 0 || r.Questions != nil {
			c.addf(where, "video carries quiz fields")
		}
	default:
		c.addf(where, "unknown resource type %q", r.Type)
	}
}

// unitTest validates a unit test. Its own path is a content blob when
// the plan is being built, and any safe path when read back.
func (c *checker) unitTest(where string, t *UnitTest, content bool) {
	c.required(where, "id", t.ID)
	c.required(where, "title", t.Title)
	if content {
		c.contentPath(where, "path", t.Path)
	} else {
		c.path(where, "path", t.Path)
	}
	c.questions(where, t.QuestionCount, t.Questions)
}

func (c *checker) questions(where string, count int, qs []QuestionRef) {
	if len(qs) == 0 {
		c.addf(where, "at least one question is required")
	}
	if count != len(qs) {
		c.addf(where, "questionCount %d does not match %d questions", count, len(qs))
	}
	for i, q := range qs {
		qw := fmt.Sprintf("%s.questions[%d]", where, i)
		if q.Number != i+1 {
			c.addf(qw, "number %d out of sequence, want %d", q.Number, i+1)
		}
		c.contentPath(qw, "xml", q.XML)
		c.contentPath(qw, "json", q.JSON)
	}
}

// validateIndex checks a decoded index.json.
func validateIndex(idx *Index) error {
	var c checker
	if idx.Version != Version {
		c.addf("", "version %d is not supported, want %d", idx.Version, Version)
	}
	c.required("generator", "name", idx.Generator.Name)
	c.required("generator", "version", idx.Generator.Version)
	c.required("course", "title", idx.Course.Title)
	c.required("course", "subject", idx.Course.Subject)
	seen := make(map[string]bool, len(idx.Units))
	for i, u := range idx.Units {
		where := fmt.Sprintf("units[%d]", i)
		if ClassifyUnitID(u.ID) == UnitIDInvalid {
			c.addf(where, "id %q is neither unit-<n> nor a lowercase slug", u.ID)
		}
		if seen[u.ID] {
			c.addf(where, "duplicate unit id %q", u.ID)
		}
		seen[u.ID] = true
		c.positive(where, "unitNumber", u.UnitNumber)
		c.required(where, "title", u.Title)
		c.path(where, "path", u.Path)
	}
	return c.err(IndexPath)
}

// validateUnit checks a decoded unit file. Counts are not recomputed:
// they are only derivable from the lesson files, which this does not read.
func validateUnit(subject string, u *Unit) error {
	var c checker
	if ClassifyUnitID(u.ID) == UnitIDInvalid {
		c.addf("", "id %q is neither unit-<n> nor a lowercase slug", u.ID)
	}
	c.positive("", "unitNumber", u.UnitNumber)
	c.required("", "title", u.Title)
	for i, l := range u.Lessons {
		where := fmt.Sprintf("lessons[%d]", i)
		if !slugID.MatchString(l.ID) {
			c.addf(where, "id %q is not a lowercase slug", l.ID)
		}
		c.positive(where, "lessonNumber", l.LessonNumber)
		c.required(where, "title", l.Title)
		c.path(where, "path", l.Path)
	}
	if u.UnitTest != nil {
		c.unitTest("unitTest", u.UnitTest, false)
	}
	if u.Counts.LessonCount < 0 || u.Counts.ResourceCount < 0 || u.Counts.QuestionCount < 0 {
		c.addf("counts", "counts must be non-negative")
	}
	return c.err(subject)
}

// validateLesson checks a decoded lesson file.
func validateLesson(subject string, l *Lesson) error {
	var c checker
	if ClassifyUnitID(l.UnitID) == UnitIDInvalid {
		c.addf("", "unitId %q is neither unit-<n> nor a lowercase slug", l.UnitID)
	}
	c.lessonBody("", l)
	return c.err(subject)
}

// validateManifest checks a decoded integrity.json.
func validateManifest(m *Integrity) error {
	var c checker
	if m.Algorithm != Algorithm {
		c.addf("", "algorithm %q is not supported, want %q", m.Algorithm, Algorithm)
	}
	if m.Files == nil {
		c.addf("", "files is required")
	}
	for _, p := range slices.Sorted(maps.Keys(m.Files)) {
		d := m.Files[p]
		where := "files[" + p + "]"
		c.path(where, "path", p)
		if d.Size < 0 {
			c.addf(where, "size must be >= 0")
		}
		if !validDigest(d.SHA256) {
			c.addf(where, "sha256 %q is not 64 lowercase hex characters", d.SHA256)
		}
	}
	return c.err(IntegrityPath)
}

func validDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if (b < '0' || b > '9') && (b < 'a' || b > 'f') {
			return false
		}
	}
	return true
}
