// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"mandir-fund/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	AppEnv          string        `env:"APP_ENV" envDefault:"development"`
	ServerPort      string        `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	DB db.Config

	UPI    UPIConfig
	Intake IntakeConfig

	AdminToken         string   `env:"ADMIN_TOKEN"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

// UPIConfig describes the payee the deep link points at.
type UPIConfig struct {
	PayeeAddress string `env:"UPI_PAYEE_ADDRESS"`
	PayeeName    string `env:"UPI_PAYEE_NAME" envDefault:"Sri Hanuman Mandir Trust"`
	Note         string `env:"UPI_NOTE" envDefault:"Temple reconstruction donation"`
}

// IntakeConfig controls the donation wizard.
type IntakeConfig struct {
	PresetAmounts []int64       `env:"PRESET_AMOUNTS" envSeparator:"," envDefault:"500,1000,5000,10000"`
	DefaultAmount int64         `env:"DEFAULT_AMOUNT" envDefault:"1000"`
	TTL           time.Duration `env:"INTAKE_TTL" envDefault:"30m"`
	Capacity      int           `env:"INTAKE_CAPACITY" envDefault:"10000"`
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present; real environment
// variables take precedence over it.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env.Parse cannot express.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.UPI.PayeeAddress) == "" {
		return fmt.Errorf("UPI_PAYEE_ADDRESS is required")
	}
	if !strings.Contains(c.UPI.PayeeAddress, "@") {
		return fmt.Errorf("invalid UPI_PAYEE_ADDRESS %q: expected a VPA like name@bank", c.UPI.PayeeAddress)
	}
	if len(c.Intake.PresetAmounts) == 0 {
		return fmt.Errorf("PRESET_AMOUNTS must list at least one amount")
	}
	for _, p := range c.Intake.PresetAmounts {
		if p <= 0 {
			return fmt.Errorf("invalid PRESET_AMOUNTS: %d is not positive", p)
		}
	}
	if c.Intake.DefaultAmount <= 0 {
		return fmt.Errorf("invalid DEFAULT_AMOUNT: %d is not positive", c.Intake.DefaultAmount)
	}
	if c.Intake.Capacity <= 0 {
		return fmt.Errorf("invalid INTAKE_CAPACITY: %d", c.Intake.Capacity)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %d", c.RateLimitPerMinute)
	}
	return nil
}
