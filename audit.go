// Integrity audit.
//
// ValidateIntegrity is the read-side counterpart of build validation, with
// the opposite failure policy: it reports every problem it finds. Only a
// manifest that cannot be read, parsed or validated is an error, since
// without it there is nothing to audit against.
package cartridge

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
)

// IssueKind classifies an integrity problem.
type IssueKind string

const (
	IssueMissing IssueKind = "missing"
	IssueSize    IssueKind = "size mismatch"
	IssueHash    IssueKind = "hash mismatch"
)

// Issue is one integrity problem. It is data, not an error.
type Issue struct {
	Path    string    `json:"path"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// Report is the outcome of an audit. OK is true exactly when Issues is
// empty.
type Report struct {
	OK     bool    `json:"ok"`
	Issues []Issue `json:"issues"`
}

// ValidateIntegrity re-reads every path listed in integrity.json and
// compares its size and SHA-256 with the manifest. Each bad path produces
// exactly one issue. Paths are checked in sorted order.
func ValidateIntegrity(r Reader) (*Report, error) {
	m, err := ReadIntegrity(r)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}

	report := &Report{Issues: []Issue{}}
	for _, path := range slices.Sorted(maps.Keys(m.Files)) {
		if path == IntegrityPath {
			continue
		}
		if issue, bad := check(r, path, m.Files[path]); bad {
			report.Issues = append(report.Issues, issue)
		}
	}
	report.OK = len(report.Issues) == 0
	return report, nil
}

func check(r Reader, path string, want FileDigest) (Issue, bool) {
	data, err := r.ReadBytes(path)
	if err != nil {
		return Issue{Path: path, Kind: IssueMissing, Message: err.Error()}, true
	}
	got, err := digest(bytes.NewReader(data))
	if err != nil {
		return Issue{Path: path, Kind: IssueMissing, Message: err.Error()}, true
	}
	if got.Size != want.Size {
		return Issue{Path: path, Kind: IssueSize, Message: fmt.Sprintf("size %d, manifest says %d", got.Size, want.Size)}, true
	}
	if got.SHA256 != want.SHA256 {
		return Issue{Path: path, Kind: IssueHash, Message: fmt.Sprintf("sha256 %s, manifest says %s", got.SHA256, want.SHA256)}, true
	}
	return Issue{}, false
}
