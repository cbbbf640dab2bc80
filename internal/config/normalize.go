package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.Build.Mode = strings.ToLower(strings.TrimSpace(c.Build.Mode))
	if c.Build.Mode == "" {
		c.Build.Mode = defaultMode
	}
	c.Build.Compressor = strings.ToLower(strings.TrimSpace(c.Build.Compressor))
	if c.Build.Compressor == "" {
		c.Build.Compressor = defaultCompressor
	}
	c.Build.Level = strings.ToLower(strings.TrimSpace(c.Build.Level))
	if c.Build.Level == "" {
		c.Build.Level = defaultLevel
	}
	c.Build.CompressorCommand = trimArgs(c.Build.CompressorCommand)
	c.Build.TarCommand = trimArgs(c.Build.TarCommand)

	var err error
	if c.Build.StagingDir, err = ExpandPath(strings.TrimSpace(c.Build.StagingDir)); err != nil {
		return fmt.Errorf("build.staging_dir: %w", err)
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	for i, tag := range c.Verify.ForbiddenTags {
		c.Verify.ForbiddenTags[i] = strings.ToLower(strings.Trim(strings.TrimSpace(tag), "<>"))
	}
	return nil
}

func trimArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
