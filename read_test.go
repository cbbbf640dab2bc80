package cartridge

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadNotFound(t *testing.T) {
	c := openBuilt(t, introPlan())

	if _, err := c.ReadBytes("articles/nope.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadBytes: got %v, want ErrNotFound", err)
	}
	if _, err := c.ReadText("articles/nope.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadText: got %v, want ErrNotFound", err)
	}
	if _, err := c.Size("articles/nope.html"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Size: got %v, want ErrNotFound", err)
	}
	if c.Has("articles/nope.html") {
		t.Error("Has reported a missing path")
	}
	if _, err := ReadUnit(c, "units/unit-9.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadUnit: got %v, want ErrNotFound", err)
	}
}

func TestReadBytesReturnsCopy(t *testing.T) {
	c := openBuilt(t, introPlan())
	first, err := c.ReadBytes("articles/a1.html")
	if err != nil {
		t.Fatal(err)
	}
	first[0] = 'X'
	second, err := c.ReadBytes("articles/a1.html")
	if err != nil {
		t.Fatal(err)
	}
	if second[0] != '<' {
		t.Error("mutating a ReadBytes result changed the archive")
	}
}

func TestPathsOrder(t *testing.T) {
	c := openBuilt(t, fullPlan())
	want := []string{
		"lessons/unit-1/l1.json",
		"lessons/unit-1/l2.json",
		"lessons/review/r1.json",
		"units/unit-1.json",
		"units/review.json",
		"index.json",
		// Blobs follow in first-reference order.
		"articles/a1.html",
		"videos/v1.json",
		"questions/q1-1.xml",
		"questions/q1-1.json",
		"questions/q1-2.xml",
		"questions/q1-2.json",
		"tests/unit-1.json",
		"questions/t1-1.xml",
		"questions/t1-1.json",
		"articles/a2.html",
		"integrity.json",
	}
	if diff := cmp.Diff(want, c.Paths()); diff != "" {
		t.Errorf("Paths (-want +got):\n%s", diff)
	}
}

func TestOpenCorrupt(t *testing.T) {
	good := buildBytes(t, introPlan())
	tests := map[string][]byte{
		"garbage":   []byte("definitely not zstd"),
		"truncated": good[:len(good)/2],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := OpenBytes(data); !errors.Is(err, ErrCorruptArchive) {
				t.Errorf("got %v, want ErrCorruptArchive", err)
			}
		})
	}
}

func TestOpenDuplicateEntry(t *testing.T) {
	var dup bytes.Buffer
	zw, err := Zstd{}.NewWriter(&dup)
	if err != nil {
		t.Fatal(err)
	}
	aw := newArchiveWriter(zw)
	for range 2 {
		// The accumulator refuses the second record, so write raw headers.
		if err := aw.tw.WriteHeader(tarHeader("a.txt", 1)); err != nil {
			t.Fatal(err)
		}
		if _, err := aw.tw.Write([]byte("a")); err != nil {
			t.Fatal(err)
		}
	}
	if err := aw.tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenBytes(dup.Bytes()); !errors.Is(err, ErrCorruptArchive) {
		t.Errorf("got %v, want ErrCorruptArchive", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.tar.zst")
	if err := os.WriteFile(path, buildBytes(t, fullPlan()), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	size, err := c.Size("articles/a2.html")
	if err != nil || size != int64(len("<h1>Recap</h1>")) {
		t.Errorf("Size = %d, %v", size, err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.tar.zst")); !os.IsNotExist(err) {
		t.Errorf("Open missing: got %v, want not-exist", err)
	}
}

func TestConcurrentReads(t *testing.T) {
	c := openBuilt(t, fullPlan())
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, p := range c.Paths() {
				if _, err := c.ReadBytes(p); err != nil {
					t.Errorf("ReadBytes(%s): %v", p, err)
				}
			}
			if _, err := ValidateIntegrity(c); err != nil {
				t.Errorf("ValidateIntegrity: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestClientContent(t *testing.T) {
	c := openBuilt(t, fullPlan())

	xml, err := ReadQuestionXML(c, "questions/q1-2.xml")
	if err != nil || xml != `<assessmentItem identifier="q1-2"/>` {
		t.Errorf("ReadQuestionXML = %q, %v", xml, err)
	}
	q, err := ReadQuestionJSON(c, "questions/q1-1.json")
	if err != nil {
		t.Fatalf("ReadQuestionJSON: %v", err)
	}
	if q["identifier"] != "q1-1" {
		t.Errorf("question = %v", q)
	}
	v, err := ReadVideoMetadata(c, "videos/v1.json")
	if err != nil {
		t.Fatalf("ReadVideoMetadata: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"youtubeId": "dQw4w9WgXcQ", "durationSeconds": float64(212)}, v); diff != "" {
		t.Errorf("video (-want +got):\n%s", diff)
	}
	if _, err := ReadVideoMetadata(c, "articles/a1.html"); err == nil {
		t.Error("ReadVideoMetadata parsed HTML")
	}
}

func TestClientRejectsMalformedStructure(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"index unknown field", IndexPath, `{"version":1,"generatedAt":"2026-01-01T00:00:00Z",` +
			`"generator":{"name":"g","version":"1"},"course":{"title":"t","subject":"s"},"units":[],"extra":true}`},
		{"index bad version", IndexPath, `{"version":2,"generatedAt":"2026-01-01T00:00:00Z",` +
			`"generator":{"name":"g","version":"1"},"course":{"title":"t","subject":"s"},"units":[]}`},
		{"unit bad id", "units/x.json", `{"id":"Unit 1","unitNumber":1,"title":"t","lessons":[],` +
			`"counts":{"lessonCount":0,"resourceCount":0,"questionCount":0}}`},
		{"lesson unknown resource", "lessons/u/l.json", `{"id":"l","unitId":"unit-1","lessonNumber":1,"title":"t",` +
			`"resources":[{"type":"podcast","id":"p"}]}`},
		{"article with quiz fields", "lessons/u/l.json", `{"id":"l","unitId":"unit-1","lessonNumber":1,"title":"t",` +
			`"resources":[{"type":"article","id":"a","path":"a.html","questions":[]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mapReader{tt.path: []byte(tt.body)}
			var err error
			switch {
			case tt.path == IndexPath:
				_, err = ReadIndex(r)
			case filepath.Dir(tt.path) == "units":
				_, err = ReadUnit(r, tt.path)
			default:
				_, err = ReadLesson(r, tt.path)
			}
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("got %v, want ErrSchema", err)
			}
			var se *SchemaError
			if !errors.As(err, &se) || se.Subject != tt.path {
				t.Errorf("subject = %+v, want %s", se, tt.path)
			}
		})
	}
}
