// Compression for the tar stream.
//
// A Compressor turns the raw tar stream into zstd frames. Two are provided:
// Zstd runs the encoder in-process, Command pipes through an external
// binary. Both are streaming; neither buffers the whole archive unless the
// destination it is handed does.
package cartridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compressor wraps dst in a writer that compresses everything written to
// it. Close flushes the stream and reports any failure of the compressor;
// it does not close dst.
type Compressor interface {
	NewWriter(dst io.Writer) (io.WriteCloser, error)
}

// Zstd compresses in-process. The zero value uses the fastest level and
// one encoder goroutine per CPU.
type Zstd struct {
	Level       zstd.EncoderLevel
	Concurrency int
}

func (z Zstd) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	level := z.Level
	if level == 0 {
		level = zstd.SpeedFastest
	}
	conc := z.Concurrency
	if conc <= 0 {
		conc = runtime.GOMAXPROCS(0)
	}
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(conc))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCompression, err)
	}
	return enc, nil
}

// DefaultCommand is the external compressor invocation: quiet,
// all cores, fast level, compressed stream on stdout.
var DefaultCommand = []string{"zstd", "-q", "-T0", "--fast=1", "-c"}

// Command compresses by piping through an external process that reads
// the tar stream on stdin and writes zstd on stdout.
type Command struct {
	Args []string // defaults to DefaultCommand
}

// NewWriter starts the process. When dst is an *os.File the process
// writes to it directly; otherwise exec copies stdout into dst on its own
// goroutine, so stdin writes cannot deadlock on a full stdout pipe.
func (c Command) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	args := c.Args
	if len(args) == 0 {
		args = DefaultCommand
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = dst
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: stdin: %w", ErrCompression, args[0], err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: start: %w", ErrCompression, args[0], err)
	}
	return &process{cmd: cmd, stdin: stdin, stderr: stderr, name: strings.Join(args, " ")}, nil
}

// process adapts a running command to io.WriteCloser.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	name   string
	once   sync.Once
	err    error
}

func (p *process) Write(b []byte) (int, error) {
	n, err := p.stdin.Write(b)
	if err != nil {
		// The process most likely died; Close reports why.
		if cerr := p.Close(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

func (p *process) Close() error {
	p.once.Do(func() {
		p.stdin.Close()
		p.err = processError(p.name, p.cmd.Wait(), p.stderr)
	})
	return p.err
}

// processError converts a Wait result into a *ProcessError.
func processError(name string, err error, stderr *bytes.Buffer) error {
	if err == nil {
		return nil
	}
	pe := &ProcessError{Command: name, ExitCode: -1, Stderr: stderr.String(), Err: err}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		pe.ExitCode = exit.ExitCode()
	}
	return pe
}
