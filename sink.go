// Output strategies for a compiled plan.
//
// A sink takes the ordered entry list produced by compile and turns it
// into a compressed archive. The buffered and file sinks stream the tar
// directly into a Compressor. The staged sink materialises every entry
// under a temporary directory first and hands that tree to an external tar,
// whose output is then compressed.
package cartridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type sink interface {
	write(c *compiled) (*Integrity, error)
}

// writeEntries streams c as a tar into w, closing with the manifest.
func writeEntries(w io.Writer, c *compiled) (*Integrity, error) {
	aw := newArchiveWriter(w)
	for _, e := range c.entries {
		if e.src == nil {
			if err := aw.append(e.path, e.data); err != nil {
				return nil, err
			}
			continue
		}
		if err := appendBlob(aw, e); err != nil {
			return nil, err
		}
	}
	return aw.finalize()
}

func appendBlob(aw *archiveWriter, e entry) error {
	size, err := e.src.size()
	if err != nil {
		return writeError(e.path, err)
	}
	rc, err := e.src.open()
	if err != nil {
		return writeError(e.path, err)
	}
	defer rc.Close()
	return aw.appendFrom(e.path, size, rc)
}

// bufferedSink collects the compressed archive in memory.
type bufferedSink struct {
	compressor Compressor
	buf        bytes.Buffer
}

func (s *bufferedSink) write(c *compiled) (*Integrity, error) {
	zw, err := s.compressor.NewWriter(&s.buf)
	if err != nil {
		return nil, err
	}
	m, err := writeEntries(zw, c)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// fileSink streams the compressed archive to path.
type fileSink struct {
	compressor Compressor
	path       string
	logger     *slog.Logger
}

func (s *fileSink) write(c *compiled) (*Integrity, error) {
	return writeDestination(s.path, s.logger, func(f *os.File) (*Integrity, error) {
		zw, err := s.compressor.NewWriter(f)
		if err != nil {
			return nil, err
		}
		m, err := writeEntries(zw, c)
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
		return m, err
	})
}

// writeDestination creates path (and its parent directories), locks it
// exclusively and hands it to fill. On failure the partial file is
// removed.
func writeDestination(path string, logger *slog.Logger, fill func(f *os.File) (*Integrity, error)) (m *Integrity, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create destination directory: %w", ErrArchiveWrite, err)
	}
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open destination: %w", ErrArchiveWrite, err)
	}
	lock, err := lockDestination(path)
	if err != nil {
		f.Close()
		if created {
			os.Remove(path)
		}
		return nil, err
	}
	defer lock.release()

	defer func() {
		if err == nil {
			return
		}
		f.Close()
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			logger.Warn("failed to remove partial archive", "path", path, "error", rerr)
		}
	}()

	if err := f.Truncate(0); err != nil {
		return nil, fmt.Errorf("%w: truncate destination: %w", ErrArchiveWrite, err)
	}
	if m, err = fill(f); err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync: %w", ErrArchiveWrite, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %w", ErrArchiveWrite, err)
	}
	return m, nil
}

// lockDestination takes the exclusive lock held for the whole write.
var lockDestination = func(path string) (*fileLock, error) {
	return lockFile(path, LockExclusive)
}

// DefaultTarCommand is the archiver used by staged builds. The staging
// directory and entry list are appended: -C <dir> -cf - -- <paths...>.
var DefaultTarCommand = []string{"tar"}

// stagedSink materialises entries on disk, then runs tar | compressor.
type stagedSink struct {
	compressor Compressor
	tar        []string
	parent     string // where the staging directory is created
	path       string
	logger     *slog.Logger
}

func (s *stagedSink) write(c *compiled) (*Integrity, error) {
	dir, err := os.MkdirTemp(s.parent, "cartridge-stage-")
	if err != nil {
		return nil, fmt.Errorf("%w: create staging directory: %w", ErrArchiveWrite, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove staging directory", "dir", dir, "error", err)
		}
	}()

	m, names, err := stage(dir, c)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("staged archive entries", "dir", dir, "entries", len(names))

	return writeDestination(s.path, s.logger, func(f *os.File) (*Integrity, error) {
		zw, err := s.compressor.NewWriter(f)
		if err != nil {
			return nil, err
		}
		err = s.archive(dir, names, zw)
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
		return m, err
	})
}

// stage writes every entry and the manifest under dir, hashing content
// as it is copied. It returns the entry names in archive order.
func stage(dir string, c *compiled) (*Integrity, []string, error) {
	acc := newAccumulator()
	names := make([]string, 0, len(c.entries)+1)
	for _, e := range c.entries {
		if err := stageEntry(dir, acc, e); err != nil {
			return nil, nil, err
		}
		names = append(names, e.path)
	}
	m := acc.manifest()
	data, err := encodeJSON(m)
	if err != nil {
		return nil, nil, writeError(IntegrityPath, err)
	}
	if err := os.WriteFile(filepath.Join(dir, IntegrityPath), data, 0o644); err != nil {
		return nil, nil, writeError(IntegrityPath, err)
	}
	return m, append(names, IntegrityPath), nil
}

func stageEntry(dir string, acc *accumulator, e entry) error {
	dst := filepath.Join(dir, filepath.FromSlash(e.path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return writeError(e.path, err)
	}
	if e.src == nil {
		if err := os.WriteFile(dst, e.data, 0o644); err != nil {
			return writeError(e.path, err)
		}
		if _, err := acc.record(e.path, e.data); err != nil {
			return writeError(e.path, err)
		}
		return nil
	}

	src, err := e.src.open()
	if err != nil {
		return writeError(e.path, err)
	}
	defer src.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return writeError(e.path, err)
	}
	t := acc.writer(e.path)
	if _, err := io.Copy(io.MultiWriter(out, t), src); err != nil {
		out.Close()
		return writeError(e.path, err)
	}
	if err := out.Close(); err != nil {
		return writeError(e.path, err)
	}
	if _, err := t.commit(); err != nil {
		return writeError(e.path, err)
	}
	return nil
}

// archive runs the external tar over dir, writing its stdout into w.
func (s *stagedSink) archive(dir string, names []string, w io.Writer) error {
	args := append([]string{}, s.tar[1:]...)
	args = append(args, "-C", dir, "-cf", "-", "--")
	args = append(args, names...)
	cmd := exec.Command(s.tar[0], args...)
	cmd.Stdout = w
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return processError(strings.Join(s.tar, " "), cmd.Run(), stderr)
}
