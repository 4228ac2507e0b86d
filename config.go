package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime settings. Values come from the environment (optionally
// via .env.local) and may be overridden by command-line flags.
type Config struct {
	DBPath     string
	BcryptCost int
	LogLevel   string
	LogFormat  string
	Seed       bool
}

const envFile = ".env.local"

func loadConfig() (Config, error) {
	_ = godotenv.Load(envFile)

	cfg := Config{
		DBPath:    envOrDefault("LIBRARY_DB_PATH", "library.db"),
		LogLevel:  envOrDefault("LIBRARY_LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LIBRARY_LOG_FORMAT", "text"),
	}

	cost, err := strconv.Atoi(envOrDefault("LIBRARY_BCRYPT_COST", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LIBRARY_BCRYPT_COST: %w", err)
	}
	cfg.BcryptCost = cost

	seed, err := strconv.ParseBool(envOrDefault("LIBRARY_SEED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LIBRARY_SEED: %w", err)
	}
	cfg.Seed = seed

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost must be between 4 and 14, got %d", c.BcryptCost)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// newLogger builds the process logger. Call only with a validated Config.
func newLogger(w io.Writer, cfg Config) *slog.Logger {
	lvl, _ := parseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
