package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the server configuration. Every field can be set from the
// environment; the CLI overrides what it is given explicitly.
type Config struct {
	Addr          string        `env:"SANTA_ADDR" envDefault:":8080"`
	Store         string        `env:"SANTA_STORE" envDefault:"memory"`
	DSN           string        `env:"SANTA_DSN"`
	EventKey      string        `env:"SANTA_EVENT_KEY" envDefault:"navidad2025"`
	AdminName     string        `env:"SANTA_ADMIN_NAME" envDefault:"Admin"`
	AdminPassword string        `env:"SANTA_ADMIN_PASSWORD"`
	PollInterval  time.Duration `env:"SANTA_POLL_INTERVAL" envDefault:"2s"`
	HintAPIKey    string        `env:"SANTA_HINT_API_KEY"`
	HintBaseURL   string        `env:"SANTA_HINT_BASE_URL"`
	HintModel     string        `env:"SANTA_HINT_MODEL" envDefault:"gpt-4o-mini"`
	HintLanguage  string        `env:"SANTA_HINT_LANGUAGE" envDefault:"English"`
	Verbose       bool          `env:"SANTA_VERBOSE"`
}

// Load reads an optional .env file and then the environment.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to serve.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("%s store requires a DSN (SANTA_DSN or --dsn)", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (memory, sqlite or postgres)", c.Store)
	}
	if strings.TrimSpace(c.EventKey) == "" {
		return errors.New("event key must not be empty")
	}
	if strings.TrimSpace(c.AdminName) == "" {
		return errors.New("admin name must not be empty")
	}
	if c.AdminPassword == "" {
		return errors.New("admin password required (SANTA_ADMIN_PASSWORD or --admin-password)")
	}
	if strings.TrimSpace(c.AdminPassword) != c.AdminPassword {
		return errors.New("admin password must not start or end with spaces")
	}
	return nil
}
