package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cartridge/internal/config"
	"github.com/jpl-au/cartridge/internal/logging"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads configuration and builds the logger once per process.
// Command-line log flags win over the file.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		level := cfg.Logging.Level
		if c.flags.logLevel != "" {
			level = c.flags.logLevel
		}
		format := cfg.Logging.Format
		if c.flags.logFormat != "" {
			format = c.flags.logFormat
		}
		logger, err := logging.New(logging.Options{Level: level, Format: format})
		if err != nil {
			c.configErr = err
			return
		}
		logger.Debug("configuration loaded", "path", path, "exists", exists)
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		return logging.Discard()
	}
	return c.logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
