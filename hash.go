// Content fingerprints for whole cartridges.
//
// A ContentID is a 16 hex character digest of an integrity manifest's file
// table. Because index.json embeds generatedAt, its own entry is left out:
// two builds of the same plan then share a ContentID even when built at
// different times. Two algorithms are supported.
package cartridge

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgBlake2b = 2 // Cryptographic
)

// ContentID fingerprints m with the given algorithm (0 selects AlgXXHash3).
func ContentID(m *Integrity, alg int) (string, error) {
	var buf []byte
	for _, p := range slices.Sorted(maps.Keys(m.Files)) {
		if p == IndexPath || p == IntegrityPath {
			continue
		}
		d := m.Files[p]
		buf = append(buf, p...)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, d.Size, 10)
		buf = append(buf, 0)
		buf = append(buf, d.SHA256...)
		buf = append(buf, '\n')
	}

	switch alg {
	case 0, AlgXXHash3:
		return fmt.Sprintf("%016x", xxh3.Hash(buf)), nil
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
		h.Write(buf)
		return fmt.Sprintf("%016x", h.Sum(nil)), nil
	default:
		return "", fmt.Errorf("content id: unknown algorithm %d", alg)
	}
}
