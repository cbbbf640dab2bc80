package cartridge

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

var fixedTime = time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)

// introPlan is the smallest useful course: unit-1 "Intro" with one lesson
// holding one article.
func introPlan() *Plan {
	return &Plan{
		Outline: Outline{
			GeneratedAt: fixedTime,
			Generator:   Generator{Name: "coursegen", Version: "1.0.0"},
			Course:      Course{Title: "Algebra", Subject: "math"},
			Units: []UnitPlan{{
				ID:         "unit-1",
				UnitNumber: 1,
				Title:      "Intro",
				Lessons: []Lesson{{
					ID:           "l1",
					LessonNumber: 1,
					Title:        "Welcome",
					Resources:    []Resource{Article("a1", "articles/a1.html")},
				}},
			}},
		},
		Files: map[string][]byte{
			"articles/a1.html": []byte(`<p>hi</p>"`),
		},
	}
}

// fullPlan exercises every resource kind, a unit test and a named unit.
func fullPlan() *Plan {
	q := func(n int, base string) QuestionRef {
		return QuestionRef{
			Number: n,
			XML:    "questions/" + base + ".xml",
			JSON:   "questions/" + base + ".json",
		}
	}
	return &Plan{
		Outline: Outline{
			GeneratedAt: fixedTime,
			Generator:   Generator{Name: "coursegen", Version: "1.0.0", Commit: "abc123"},
			Course:      Course{Title: "Algebra", Subject: "math"},
			Units: []UnitPlan{
				{
					ID:         "unit-1",
					UnitNumber: 1,
					Title:      "Linear equations",
					Lessons: []Lesson{
						{
							ID:           "l1",
							LessonNumber: 1,
							Title:        "Solving for x",
							Resources: []Resource{
								Article("a1", "articles/a1.html"),
								Video("v1", "videos/v1.json", "dQw4w9WgXcQ", 212),
							},
						},
						{
							ID:           "l2",
							LessonNumber: 2,
							Title:        "Practice",
							Resources: []Resource{
								Quiz("q1", q(1, "q1-1"), q(2, "q1-2")),
							},
						},
					},
					UnitTest: &UnitTest{
						ID:            "t1",
						Title:         "Unit 1 test",
						Path:          "tests/unit-1.json",
						QuestionCount: 1,
						Questions:     []QuestionRef{q(1, "t1-1")},
					},
				},
				{
					ID:         "review",
					UnitNumber: 2,
					Title:      "Review",
					Lessons: []Lesson{{
						ID:           "r1",
						LessonNumber: 1,
						Title:        "Recap",
						Resources:    []Resource{Article("a2", "articles/a2.html")},
					}},
				},
			},
		},
		Files: map[string][]byte{
			"articles/a1.html":    []byte("<h1>Solving</h1>"),
			"articles/a2.html":    []byte("<h1>Recap</h1>"),
			"videos/v1.json":      []byte(`{"youtubeId":"dQw4w9WgXcQ","durationSeconds":212}`),
			"questions/q1-1.xml":  []byte("<assessmentItem identifier=\"q1-1\"/>"),
			"questions/q1-1.json": []byte(`{"identifier":"q1-1"}`),
			"questions/q1-2.xml":  []byte("<assessmentItem identifier=\"q1-2\"/>"),
			"questions/q1-2.json": []byte(`{"identifier":"q1-2"}`),
			"questions/t1-1.xml":  []byte("<assessmentItem identifier=\"t1-1\"/>"),
			"questions/t1-1.json": []byte(`{"identifier":"t1-1"}`),
			"tests/unit-1.json":   []byte(`{"id":"t1"}`),
		},
	}
}

func newTestBuilder() *Builder {
	return New(Config{Now: func() time.Time { return fixedTime }})
}

func buildBytes(t *testing.T, p *Plan) []byte {
	t.Helper()
	data, err := newTestBuilder().Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

func openBuilt(t *testing.T, p *Plan) *Cartridge {
	t.Helper()
	c, err := OpenBytes(buildBytes(t, p))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	return c
}

// rawEntry is one member of an uncompressed tar stream.
type rawEntry struct {
	name string
	body []byte
}

// untar decompresses and lists every member of a built archive.
func untar(t *testing.T, data []byte) []rawEntry {
	t.Helper()
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []rawEntry
	tr := tar.NewReader(dec)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("tar body: %v", err)
		}
		out = append(out, rawEntry{h.Name, body})
	}
}

// repack rewrites a built archive, passing every member through mutate.
// Returning nil from mutate drops the member.
func repack(t *testing.T, data []byte, mutate func(name string, body []byte) []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	tw := tar.NewWriter(zw)
	for _, e := range untar(t, data) {
		body := mutate(e.name, e.body)
		if body == nil {
			continue
		}
		if err := tw.WriteHeader(tarHeader(e.name, int64(len(body)))); err != nil {
			t.Fatalf("header: %v", err)
		}
		if _, err := tw.Write(body); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

// mapReader is an in-memory Reader for exercising the client API without
// an archive.
type mapReader map[string][]byte

func (m mapReader) ReadBytes(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, nil
}

func (m mapReader) ReadText(path string) (string, error) {
	data, err := m.ReadBytes(path)
	return string(data), err
}
