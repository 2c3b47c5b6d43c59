package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	// KickGrace is how long the server keeps a kicked member's socket
	// open after sending you_were_kicked, so the notice can be read
	// before the close frame arrives.
	KickGrace time.Duration `mapstructure:"kick_grace" yaml:"kick_grace"`
}

// Default returns configuration with reasonable starter defaults.
// MaxMessageBytes must accommodate a full-state snapshot: a 256x256
// canvas with a handful of frames and layers is a few megabytes of
// base64-encoded pixels.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   32 << 20,
		LogLevel:          "info",
		DatabasePath:      "pixelsync.db",
		KickGrace:         250 * time.Millisecond,
	}
}
