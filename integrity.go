// Integrity accumulation.
//
// Every archive entry is recorded exactly once, in write order, as it is
// written. The manifest is snapshotted from the accumulator after the last
// content entry and before integrity.json itself is appended, so it can
// never describe itself.
package cartridge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"maps"
)

type accumulator struct {
	files map[string]FileDigest
}

func newAccumulator() *accumulator {
	return &accumulator{files: make(map[string]FileDigest)}
}

// record hashes data and stores its digest under path.
func (a *accumulator) record(path string, data []byte) (FileDigest, error) {
	sum := sha256.Sum256(data)
	d := FileDigest{Size: int64(len(data)), SHA256: hex.EncodeToString(sum[:])}
	return d, a.put(path, d)
}

// writer returns a tracker that hashes bytes as they stream past. The
// digest is stored when commit is called.
func (a *accumulator) writer(path string) *tracker {
	return &tracker{acc: a, path: path, h: sha256.New()}
}

func (a *accumulator) put(path string, d FileDigest) error {
	if path == IntegrityPath {
		return fmt.Errorf("integrity: %s cannot be recorded", IntegrityPath)
	}
	if _, ok := a.files[path]; ok {
		return fmt.Errorf("integrity: %s recorded twice", path)
	}
	a.files[path] = d
	return nil
}

// manifest snapshots everything recorded so far.
func (a *accumulator) manifest() *Integrity {
	return &Integrity{Algorithm: Algorithm, Files: maps.Clone(a.files)}
}

// tracker is an io.Writer that counts and hashes.
type tracker struct {
	acc  *accumulator
	path string
	h    hash.Hash
	n    int64
}

func (t *tracker) Write(p []byte) (int, error) {
	t.h.Write(p)
	t.n += int64(len(p))
	return len(p), nil
}

func (t *tracker) commit() (FileDigest, error) {
	d := FileDigest{Size: t.n, SHA256: hex.EncodeToString(t.h.Sum(nil))}
	return d, t.acc.put(t.path, d)
}

// digest computes the size and hex SHA-256 of r.
func digest(r io.Reader) (FileDigest, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return FileDigest{}, err
	}
	return FileDigest{Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
