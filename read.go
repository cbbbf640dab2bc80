// Archive loading and path lookup.
//
// A tar.zst stream has no random access, so Open decompresses the archive
// once and keeps every entry in memory. After that the Cartridge is
// immutable: reads share no cursor and may be issued concurrently.
package cartridge

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Reader is the read capability the client API is written against.
type Reader interface {
	ReadBytes(path string) ([]byte, error)
	ReadText(path string) (string, error)
}

// Cartridge is an opened archive.
type Cartridge struct {
	files map[string][]byte
	order []string
}

// Open loads the archive at path. A shared lock is held while reading so
// that a concurrent build to the same path is not observed half-written.
func Open(path string) (*Cartridge, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	lock, err := lockFile(path, LockShared)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return c, nil
}

// OpenBytes loads an archive held in memory, such as the result of Build.
func OpenBytes(data []byte) (*Cartridge, error) {
	return OpenReader(bytes.NewReader(data))
}

// OpenReader loads an archive from r.
func OpenReader(r io.Reader) (*Cartridge, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorruptArchive, err)
	}
	defer dec.Close()

	c := &Cartridge{files: make(map[string][]byte)}
	tr := tar.NewReader(dec)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}
		if !h.FileInfo().Mode().IsRegular() {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, h.Name, err)
		}
		if _, dup := c.files[h.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrCorruptArchive, h.Name)
		}
		c.files[h.Name] = data
		c.order = append(c.order, h.Name)
	}
	return c, nil
}

// ReadBytes returns a copy of the entry at path.
func (c *Cartridge) ReadBytes(path string) ([]byte, error) {
	data, ok := c.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return bytes.Clone(data), nil
}

// ReadText returns the entry at path as a string.
func (c *Cartridge) ReadText(path string) (string, error) {
	data, ok := c.files[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return string(data), nil
}

// Has reports whether the archive contains path.
func (c *Cartridge) Has(path string) bool {
	_, ok := c.files[path]
	return ok
}

// Paths lists entry names in archive order.
func (c *Cartridge) Paths() []string {
	return append([]string(nil), c.order...)
}

// Size returns the uncompressed size of the entry at path.
func (c *Cartridge) Size(path string) (int64, error) {
	data, ok := c.files[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return int64(len(data)), nil
}
