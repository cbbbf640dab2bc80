// Tar serialisation.
//
// Entries are appended strictly in sequence and each one is recorded in the
// integrity accumulator as its bytes pass through. Headers are canonical
// (fixed mtime, owner and mode) so that the same plan always serialises to
// the same tar stream apart from index.json's generatedAt.
package cartridge

import (
	"archive/tar"
	"fmt"
	"io"
	"time"
)

// Every entry carries this modification time.
var epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// archiveWriter writes tar entries and accumulates their digests.
type archiveWriter struct {
	tw  *tar.Writer
	acc *accumulator
}

func newArchiveWriter(w io.Writer) *archiveWriter {
	return &archiveWriter{tw: tar.NewWriter(w), acc: newAccumulator()}
}

func tarHeader(name string, size int64) *tar.Header {
	return &tar.Header{
		Typeflag:   tar.TypeReg,
		Name:       name,
		Size:       size,
		Mode:       0o644,
		ModTime:    epoch,
		AccessTime: epoch,
		ChangeTime: epoch,
		Format:     tar.FormatPAX,
	}
}

// append writes one entry holding data.
func (aw *archiveWriter) append(name string, data []byte) error {
	if err := aw.tw.WriteHeader(tarHeader(name, int64(len(data)))); err != nil {
		return writeError(name, err)
	}
	if _, err := aw.tw.Write(data); err != nil {
		return writeError(name, err)
	}
	if _, err := aw.acc.record(name, data); err != nil {
		return writeError(name, err)
	}
	return nil
}

// appendFrom streams exactly size bytes from r into one entry, hashing
// on the way through.
func (aw *archiveWriter) appendFrom(name string, size int64, r io.Reader) error {
	if err := aw.tw.WriteHeader(tarHeader(name, size)); err != nil {
		return writeError(name, err)
	}
	t := aw.acc.writer(name)
	n, err := io.Copy(io.MultiWriter(aw.tw, t), io.LimitReader(r, size))
	if err != nil {
		return writeError(name, err)
	}
	if n != size {
		return writeError(name, fmt.Errorf("short content: %d of %d bytes", n, size))
	}
	if _, err := t.commit(); err != nil {
		return writeError(name, err)
	}
	return nil
}

// finalize appends the integrity manifest and the end-of-archive marker.
func (aw *archiveWriter) finalize() (*Integrity, error) {
	m := aw.acc.manifest()
	data, err := encodeJSON(m)
	if err != nil {
		return nil, writeError(IntegrityPath, fmt.Errorf("encode: %w", err))
	}
	if err := aw.tw.WriteHeader(tarHeader(IntegrityPath, int64(len(data)))); err != nil {
		return nil, writeError(IntegrityPath, err)
	}
	if _, err := aw.tw.Write(data); err != nil {
		return nil, writeError(IntegrityPath, err)
	}
	if err := aw.tw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %w", ErrArchiveWrite, err)
	}
	return m, nil
}

func writeError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArchiveWrite, name, err)
}
