package config

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/jpl-au/cartridge/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBuild() error {
	switch c.Build.Mode {
	case ModeStream, ModeStaged:
	default:
		return fmt.Errorf("build.mode must be %q or %q, got %q", ModeStream, ModeStaged, c.Build.Mode)
	}
	switch c.Build.Compressor {
	case CompressorNative:
		if ok, _ := zstd.EncoderLevelFromString(c.Build.Level); !ok {
			return fmt.Errorf("build.level %q is not one of fastest, default, better, best", c.Build.Level)
		}
	case CompressorCommand:
		if len(c.Build.CompressorCommand) == 0 {
			return errors.New("build.compressor_command must be set when build.compressor is \"command\"")
		}
	default:
		return fmt.Errorf("build.compressor must be %q or %q, got %q", CompressorNative, CompressorCommand, c.Build.Compressor)
	}
	if c.Build.Mode == ModeStaged && len(c.Build.TarCommand) == 0 {
		return errors.New("build.tar_command must be set for staged builds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}
	return nil
}
