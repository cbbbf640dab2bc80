// Builder entry points.
//
// All three build modes share one pipeline: compile the plan (schema,
// required paths, missing and unexpected file checks, in that order), then
// hand the entry list to a sink. Nothing is written, and no destination
// file is created, unless compile succeeds.
package cartridge

import (
	"log/slog"
	"os"
	"time"
)

// Config holds builder configuration. Zero values select defaults.
type Config struct {
	Compressor Compressor   // default Zstd{}
	TarCommand []string     // staged builds only; default DefaultTarCommand
	StagingDir string       // parent of staged build directories; default os.TempDir()
	Logger     *slog.Logger // default discards
	Now        func() time.Time
}

// Builder writes cartridges. A Builder holds no per-build state and may be
// used from multiple goroutines.
type Builder struct {
	config Config
}

// New returns a Builder with defaults filled in.
func New(config Config) *Builder {
	if config.Compressor == nil {
		config.Compressor = Zstd{}
	}
	if len(config.TarCommand) == 0 {
		config.TarCommand = DefaultTarCommand
	}
	if config.StagingDir == "" {
		config.StagingDir = os.TempDir()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Builder{config: config}
}

// Build returns the compressed archive for p.
func (b *Builder) Build(p *Plan) ([]byte, error) {
	s := &bufferedSink{compressor: b.config.Compressor}
	if _, err := b.run(&p.Outline, p.blobs(), s, ""); err != nil {
		return nil, err
	}
	return s.buf.Bytes(), nil
}

// BuildToFile streams the compressed archive for p to out. Parent
// directories are created; an existing file at out is replaced.
func (b *Builder) BuildToFile(p *Plan, out string) (*Integrity, error) {
	s := &fileSink{compressor: b.config.Compressor, path: out, logger: b.config.Logger}
	return b.run(&p.Outline, p.blobs(), s, out)
}

// BuildStaged copies p's source files into a staging directory, then runs
// the external tar over it and compresses the result into out. The staging
// directory is removed afterwards; failure to remove it is logged.
func (b *Builder) BuildStaged(p *FilePlan, out string) (*Integrity, error) {
	s := &stagedSink{
		compressor: b.config.Compressor,
		tar:        b.config.TarCommand,
		parent:     b.config.StagingDir,
		path:       out,
		logger:     b.config.Logger,
	}
	return b.run(&p.Outline, p.blobs(), s, out)
}

func (b *Builder) run(o *Outline, files map[string]blob, s sink, out string) (*Integrity, error) {
	log := b.config.Logger
	start := b.config.Now()
	c, err := compile(o, files, start)
	if err != nil {
		log.Error("cartridge plan rejected", "error", err)
		return nil, err
	}
	m, err := s.write(c)
	if err != nil {
		log.Error("cartridge build failed", "out", out, "error", err)
		return nil, err
	}
	log.Info("cartridge built",
		"out", out,
		"course", c.index.Course.Title,
		"units", len(c.index.Units),
		"entries", len(m.Files)+1,
		"elapsed", b.config.Now().Sub(start),
	)
	return m, nil
}
