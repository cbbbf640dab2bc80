package config

const (
	defaultMode       = ModeStream
	defaultCompressor = CompressorNative
	defaultLevel      = "fastest"
	defaultLogLevel   = "info"
	defaultLogFormat  = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Build: Build{
			Mode:              defaultMode,
			Compressor:        defaultCompressor,
			Level:             defaultLevel,
			CompressorCommand: []string{"zstd", "-q", "-T0", "--fast=1", "-c"},
			TarCommand:        []string{"tar"},
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Verify: Verify{
			ForbiddenTags: []string{"iframe"},
			VideoFields:   []string{"youtubeId", "durationSeconds"},
		},
	}
}
