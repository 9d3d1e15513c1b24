package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Snapshot file with bot accounts, schedules and reply rules
	ConfigPath string `env:"CONFIG_PATH" envDefault:"./data/config.json"`

	// When set, no remote calls are made and no files are written
	DryRun bool `env:"DRY_RUN" envDefault:"false"`

	// All time-window decisions use this zone, not the machine-local one
	Timezone string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`

	// Execution log database (optional, disabled when empty)
	ExecLogDBPath string `env:"EXEC_LOG_DB_PATH"`

	// Pacing between remote calls; fixed delays, the upstream quota is
	// per-account and per-window so backoff would not help
	PostDelay    time.Duration `env:"POST_DELAY" envDefault:"2s"`
	FetchDelay   time.Duration `env:"FETCH_DELAY" envDefault:"2s"`
	ReplyDelay   time.Duration `env:"REPLY_DELAY" envDefault:"3s"`
	TargetDelay  time.Duration `env:"TARGET_DELAY" envDefault:"1s"`
	SettingDelay time.Duration `env:"SETTING_DELAY" envDefault:"1s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
	LogFile   string `env:"LOG_FILE"`                     // optional rotating log file
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
