package cartridge

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateIntegrityClean(t *testing.T) {
	for name, p := range map[string]*Plan{"intro": introPlan(), "full": fullPlan()} {
		t.Run(name, func(t *testing.T) {
			report, err := ValidateIntegrity(openBuilt(t, p))
			if err != nil {
				t.Fatalf("ValidateIntegrity: %v", err)
			}
			if !report.OK || report.Issues == nil || len(report.Issues) != 0 {
				t.Errorf("report = %+v, want ok with empty issues", report)
			}
		})
	}
}

func TestValidateIntegrityTamper(t *testing.T) {
	const target = "articles/a1.html"
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		kind   IssueKind
	}{
		{"flip", func(b []byte) []byte {
			out := append([]byte{}, b...)
			out[0] ^= 0x01
			return out
		}, IssueHash},
		{"truncate", func(b []byte) []byte { return append([]byte{}, b[:len(b)-1]...) }, IssueSize},
		{"extend", func(b []byte) []byte { return append(append([]byte{}, b...), '!') }, IssueSize},
		{"empty", func(b []byte) []byte { return []byte{} }, IssueSize},
		{"drop", func(b []byte) []byte { return nil }, IssueMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := repack(t, buildBytes(t, fullPlan()), func(name string, body []byte) []byte {
				if name == target {
					return tt.mutate(body)
				}
				return body
			})
			c, err := OpenBytes(data)
			if err != nil {
				t.Fatalf("OpenBytes: %v", err)
			}
			report, err := ValidateIntegrity(c)
			if err != nil {
				t.Fatalf("ValidateIntegrity: %v", err)
			}
			if report.OK {
				t.Fatal("report OK after tampering")
			}
			if len(report.Issues) != 1 {
				t.Fatalf("got %d issues, want 1: %+v", len(report.Issues), report.Issues)
			}
			got := report.Issues[0]
			if got.Path != target || got.Kind != tt.kind || got.Message == "" {
				t.Errorf("issue = %+v, want %s on %s", got, tt.kind, target)
			}
		})
	}
}

func TestValidateIntegrityReportsEveryBadPath(t *testing.T) {
	bad := map[string]bool{"articles/a2.html": true, "questions/q1-1.xml": true, "units/review.json": true}
	data := repack(t, buildBytes(t, fullPlan()), func(name string, body []byte) []byte {
		if bad[name] {
			return append(append([]byte{}, body...), ' ')
		}
		return body
	})
	c, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	report, err := ValidateIntegrity(c)
	if err != nil {
		t.Fatalf("ValidateIntegrity: %v", err)
	}
	var paths []string
	for _, is := range report.Issues {
		paths = append(paths, is.Path)
	}
	want := []string{"articles/a2.html", "questions/q1-1.xml", "units/review.json"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("issue paths (-want +got):\n%s", diff)
	}
}

func TestValidateIntegrityManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest []byte // nil drops integrity.json
		want     error
	}{
		{"missing", nil, ErrNotFound},
		{"not json", []byte("{"), ErrSchema},
		{"unknown field", []byte(`{"algorithm":"sha256","files":{},"extra":1}`), ErrSchema},
		{"wrong algorithm", []byte(`{"algorithm":"md5","files":{}}`), ErrSchema},
		{"bad digest", []byte(`{"algorithm":"sha256","files":{"a.txt":{"size":1,"sha256":"XYZ"}}}`), ErrSchema},
		{"negative size", []byte(`{"algorithm":"sha256","files":{"a.txt":{"size":-1,"sha256":"` +
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" + `"}}}`), ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := repack(t, buildBytes(t, introPlan()), func(name string, body []byte) []byte {
				if name == IntegrityPath {
					return tt.manifest
				}
				return body
			})
			c, err := OpenBytes(data)
			if err != nil {
				t.Fatalf("OpenBytes: %v", err)
			}
			report, err := ValidateIntegrity(c)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v (report %+v), want %v", err, report, tt.want)
			}
		})
	}
}

func TestValidateIntegrityIgnoresUnlistedMembers(t *testing.T) {
	r := mapReader{}
	c := openBuilt(t, introPlan())
	for _, p := range c.Paths() {
		r[p], _ = c.ReadBytes(p)
	}
	r["notes/extra.txt"] = []byte("not in the manifest")

	report, err := ValidateIntegrity(r)
	if err != nil {
		t.Fatalf("ValidateIntegrity: %v", err)
	}
	if !report.OK {
		t.Errorf("issues: %+v", report.Issues)
	}
}
