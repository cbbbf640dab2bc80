package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"

	"github.com/jpl-au/cartridge"
)

//go:embed sample_config.toml
var sampleConfig string

// Build modes.
const (
	ModeStream = "stream"
	ModeStaged = "staged"
)

// Compressor choices.
const (
	CompressorNative  = "native"
	CompressorCommand = "command"
)

// Build contains archive production settings.
type Build struct {
	Mode              string   `toml:"mode"`
	Compressor        string   `toml:"compressor"`
	Level             string   `toml:"level"`
	CompressorCommand []string `toml:"compressor_command"`
	TarCommand        []string `toml:"tar_command"`
	StagingDir        string   `toml:"staging_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Verify contains the content policies applied by `cartridge verify`.
type Verify struct {
	ForbiddenTags []string `toml:"forbidden_tags"`
	VideoFields   []string `toml:"video_fields"`
	CheckCounts   bool     `toml:"check_counts"`
}

// Config encapsulates all configuration values for the CLI.
type Config struct {
	Build   Build   `toml:"build"`
	Logging Logging `toml:"logging"`
	Verify  Verify  `toml:"verify"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/cartridge/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error: defaults are returned with exists set to false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("cartridge.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// Compressor returns the compressor selected by the build section.
func (c *Config) Compressor() cartridge.Compressor {
	if c.Build.Compressor == CompressorCommand {
		return cartridge.Command{Args: c.Build.CompressorCommand}
	}
	_, level := zstd.EncoderLevelFromString(c.Build.Level)
	return cartridge.Zstd{Level: level}
}

// BuilderConfig translates the build section into library configuration.
func (c *Config) BuilderConfig(logger *slog.Logger) cartridge.Config {
	return cartridge.Config{
		Compressor: c.Compressor(),
		TarCommand: c.Build.TarCommand,
		StagingDir: c.Build.StagingDir,
		Logger:     logger,
	}
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
// The empty string is returned unchanged.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
