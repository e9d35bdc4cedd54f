package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Token            string        `env:"TOKEN,required,notEmpty"`
	AnnictToken      string        `env:"ANNICT_TOKEN,required,notEmpty"`
	AnnictEndpoint   string        `env:"ANNICT_ENDPOINT"                  envDefault:"https://api.annict.com/graphql"`
	AnnictTimeout    time.Duration `env:"ANNICT_TIMEOUT"                   envDefault:"20s"`
	AllowedUsers     []int64       `env:"ALLOWED_USERS"`
	DBPath           string        `env:"DB_PATH"                          envDefault:"db.sqlite"`
	PollInterval     Interval      `env:"POLL_INTERVAL"                    envDefault:"10m"`
	BackwardPageSize int           `env:"BACKWARD_PAGE_SIZE"               envDefault:"1"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	LogLevel         slog.Level    `env:"LOG_LEVEL"                        envDefault:"INFO"`
	LogFile          string        `env:"LOG_FILE"`
	LogFileMaxSizeMB int           `env:"LOG_FILE_MAX_SIZE_MB"             envDefault:"50"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.PollInterval.Duration() <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be positive (got %s)", cfg.PollInterval.Duration())
	}

	return cfg, nil
}

// Interval accepts Go durations ("90s", "1h30m") as well as a number with a
// spelled unit ("30 sec", "5 min", "1 hour").
type Interval time.Duration

//nolint:gochecknoglobals // Compiled once.
var spelledIntervalRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*(s|sec|m|min|h|hour)\s*$`)

func (i *Interval) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))

	if m := spelledIntervalRe.FindStringSubmatch(raw); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse interval number: %w", err)
		}

		unit := time.Second
		switch strings.ToLower(m[2]) {
		case "m", "min":
			unit = time.Minute
		case "h", "hour":
			unit = time.Hour
		}

		*i = Interval(time.Duration(n) * unit)

		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse interval %q: %w", raw, err)
	}

	*i = Interval(d)

	return nil
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i)
}
