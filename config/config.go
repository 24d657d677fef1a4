package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all configurable server and game parameters.
type Config struct {
	// Symbols are the distinct card faces; the deck holds two cards per symbol.
	Symbols []string `json:"symbols"`

	// MismatchDelayMS is how long a mismatched pair stays face-up before it is flipped back.
	MismatchDelayMS int `json:"mismatch_delay_ms"`

	Port          int    `json:"port"`
	MaxSessions   int    `json:"max_sessions"`
	LogLevel      string `json:"log_level"`
	AllowedOrigin string `json:"allowed_origin"`

	// NeonAuthBaseURL enables JWT auth on /ws when set. Env only (NEON_AUTH_BASE_URL).
	NeonAuthBaseURL string `json:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Symbols:         []string{"🐶", "🐱", "🦊", "🐸", "🐵", "🐼"},
		MismatchDelayMS: 800,
		Port:            8080,
		MaxSessions:     1000,
		LogLevel:        "info",
		AllowedOrigin:   "*",
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFile("config.json")
}

// LoadFile is Load with an explicit config file path. A missing file is not an error.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	}

	overrideSymbols(&cfg.Symbols, "SYMBOLS")
	overrideInt(&cfg.MismatchDelayMS, "MISMATCH_DELAY_MS")
	overrideInt(&cfg.Port, "PORT")
	overrideInt(&cfg.MaxSessions, "MAX_SESSIONS")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.AllowedOrigin, "ALLOWED_ORIGIN")
	overrideString(&cfg.NeonAuthBaseURL, "NEON_AUTH_BASE_URL")

	return cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if len(c.Symbols) < 2 {
		return fmt.Errorf("symbols: need at least 2, got %d", len(c.Symbols))
	}
	seen := make(map[string]struct{}, len(c.Symbols))
	for i, s := range c.Symbols {
		if s == "" {
			return fmt.Errorf("symbols[%d]: empty symbol", i)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("symbols[%d]: duplicate symbol %q", i, s)
		}
		seen[s] = struct{}{}
	}
	if c.MismatchDelayMS <= 0 {
		return fmt.Errorf("mismatch_delay_ms: must be positive, got %d", c.MismatchDelayMS)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port: out of range: %d", c.Port)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions: must not be negative, got %d", c.MaxSessions)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid value", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func overrideSymbols(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	var syms []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			syms = append(syms, s)
		}
	}
	*field = syms
}
