package cartridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnitPlanCounts(t *testing.T) {
	p := fullPlan()
	tests := []struct {
		unit *UnitPlan
		want Counts
	}{
		{&p.Units[0], Counts{LessonCount: 2, ResourceCount: 3, QuestionCount: 3}},
		{&p.Units[1], Counts{LessonCount: 1, ResourceCount: 1, QuestionCount: 0}},
		{&UnitPlan{ID: "empty"}, Counts{}},
	}
	for _, tt := range tests {
		if got := tt.unit.Counts(); got != tt.want {
			t.Errorf("%s: Counts() = %+v, want %+v", tt.unit.ID, got, tt.want)
		}
	}
}

func TestRequiredPathsDeduplicates(t *testing.T) {
	p := introPlan()
	p.Units[0].Lessons = append(p.Units[0].Lessons, Lesson{
		ID:           "l2",
		LessonNumber: 2,
		Title:        "Again",
		Resources:    []Resource{Article("a1-again", "articles/a1.html")},
	})
	if diff := cmp.Diff([]string{"articles/a1.html"}, p.RequiredPaths()); diff != "" {
		t.Errorf("RequiredPaths (-want +got):\n%s", diff)
	}
	// The shared blob is stored once.
	c := openBuilt(t, p)
	n := 0
	for _, path := range c.Paths() {
		if path == "articles/a1.html" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("articles/a1.html stored %d times", n)
	}
}

func TestCheckFiles(t *testing.T) {
	required := []string{"b", "a", "c"}
	tests := []struct {
		name     string
		supplied []string
		kind     error
		paths    []string
	}{
		{"exact", []string{"a", "b", "c"}, nil, nil},
		{"missing", []string{"a"}, ErrMissingFile, []string{"b", "c"}},
		{"unexpected", []string{"a", "b", "c", "z", "y"}, ErrUnexpectedFile, []string{"y", "z"}},
		{"both", []string{"a", "z"}, ErrMissingFile, []string{"b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			supplied := make(map[string]blob)
			for _, p := range tt.supplied {
				supplied[p] = memBlob(p)
			}
			err := checkFiles(required, supplied)
			if tt.kind == nil {
				if err != nil {
					t.Fatalf("checkFiles: %v", err)
				}
				return
			}
			var fe *FileSetError
			if !errors.As(err, &fe) || !errors.Is(err, tt.kind) {
				t.Fatalf("got %v, want %v", err, tt.kind)
			}
			if diff := cmp.Diff(tt.paths, fe.Paths); diff != "" {
				t.Errorf("Paths (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileBlob(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.html")
	if err := os.WriteFile(f, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := fileBlob(f).size()
	if err != nil || n != 5 {
		t.Errorf("size = %d, %v", n, err)
	}
	if _, err := fileBlob(dir).size(); err == nil {
		t.Error("directory accepted as a blob")
	}
	if _, err := fileBlob(filepath.Join(dir, "nope")).size(); err == nil {
		t.Error("missing file accepted as a blob")
	}
}

func TestCompileOrder(t *testing.T) {
	p := fullPlan()
	c, err := compile(&p.Outline, p.blobs(), fixedTime)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var names []string
	for _, e := range c.entries {
		names = append(names, e.path)
	}
	// compile leaves integrity.json to the sink.
	want := openBuilt(t, fullPlan()).Paths()
	want = want[:len(want)-1]
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if p.Units[0].Lessons[0].UnitID != "" {
		t.Error("compile modified the caller's outline")
	}
}
