package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/vormadev/instaglyph/kit/colorlog"
)

// Environment variable keys
const (
	envAddr            = "INSTAGLYPH_ADDR"
	envLogLevel        = "INSTAGLYPH_LOG_LEVEL"
	envShutdownTimeout = "INSTAGLYPH_SHUTDOWN_TIMEOUT"
	envMaxPNGSize      = "INSTAGLYPH_MAX_PNG_SIZE"

	DefaultEnvFile = ".env"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Addr            string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
	MaxPNGSize      int
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
		MaxPNGSize:      1024,
	}
}

// Load reads envFile (if it exists) and the process environment, the
// latter taking precedence. An empty envFile skips the file.
func Load(envFile string) (Config, error) {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVals = vals
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("%w: reading %s: %w", ErrInvalid, envFile, err)
		}
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	})
}

// FromLookup builds a Config from a key lookup, starting from Default.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(envAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := lookup(envLogLevel); ok {
		level, err := colorlog.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, envLogLevel, err)
		}
		cfg.LogLevel = level
	}
	if v, ok := lookup(envShutdownTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: %s must be a positive duration, got %q", ErrInvalid, envShutdownTimeout, v)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := lookup(envMaxPNGSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalid, envMaxPNGSize, v)
		}
		cfg.MaxPNGSize = n
	}

	return cfg, nil
}
