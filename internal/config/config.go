// Package config loads fleetboard settings from FLEETBOARD_* environment
// variables, optionally seeded from a .env file.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/julianstephens/fleetboard/internal/cache"
	"github.com/julianstephens/fleetboard/internal/constants"
	"github.com/julianstephens/fleetboard/internal/timeline"
	"github.com/julianstephens/fleetboard/internal/utils"
	"github.com/julianstephens/fleetboard/internal/validation"
)

type Config struct {
	APIURL      string        `env:"API_URL" envDefault:"http://localhost:8000/api/v1" validate:"required,url"`
	Token       string        `env:"TOKEN"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	ReadRetries int           `env:"READ_RETRIES" envDefault:"3" validate:"gte=0,lte=10"`
	Timezone    string        `env:"TIMEZONE" envDefault:"Asia/Dubai" validate:"required"`

	Timeline struct {
		StartHour int     `env:"START_HOUR" envDefault:"6" validate:"gte=0,lte=23"`
		EndHour   int     `env:"END_HOUR" envDefault:"22" validate:"gtfield=StartHour,lte=24"`
		MinWidth  float64 `env:"MIN_WIDTH" envDefault:"0.05" validate:"gt=0,lt=1"`
	} `envPrefix:"TIMELINE_"`

	Stale struct {
		Reference time.Duration `env:"REFERENCE" envDefault:"60m" validate:"gte=0"`
		Summary   time.Duration `env:"SUMMARY" envDefault:"2m" validate:"gte=0"`
		Resource  time.Duration `env:"RESOURCE" envDefault:"0s" validate:"gte=0"`
	} `envPrefix:"STALE_"`

	AlertRefresh time.Duration `env:"ALERT_REFRESH" envDefault:"1m" validate:"gte=0"`

	Notify struct {
		Tray         bool   `env:"TRAY" envDefault:"true"`
		AMQPURL      string `env:"AMQP_URL" validate:"omitempty,url"`
		AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"fleetboard.outcomes"`
	} `envPrefix:"NOTIFY_"`

	Dev struct {
		Addr   string `env:"ADDR" envDefault:"127.0.0.1:8000" validate:"required,hostname_port"`
		Secret string `env:"SECRET" envDefault:"fleetboard-dev-secret" validate:"min=8"`
		DB     string `env:"DB"`
	} `envPrefix:"DEV_"`

	LogDir   string `env:"LOG_DIR"`
	LogLevel string `env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Debug    bool   `env:"DEBUG"`
}

// Load reads envFile (".env" when empty) if it exists, then the process
// environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	return parse(env.Options{Prefix: constants.EnvPrefix})
}

// FromMap parses settings from vars instead of the process environment.
// Keys carry the FLEETBOARD_ prefix.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: constants.EnvPrefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		var agg env.AggregateError
		if stderrors.As(err, &agg) && len(agg.Errors) > 0 {
			return nil, agg.Errors[0]
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings after flags have been applied.
func (c *Config) Validate() error {
	if err := validation.Default().Struct(c); err != nil {
		return err
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	return nil
}

// Policies returns the cache staleness windows
func (c *Config) Policies() cache.Policies {
	p := cache.DefaultPolicies()
	for _, root := range []string{cache.RootDrivers, cache.RootTankers, cache.RootTripGroups, cache.RootMe} {
		p[root] = c.Stale.Reference
	}
	for _, root := range []string{cache.RootSchedule, cache.RootAlerts} {
		p[root] = c.Stale.Summary
	}
	for _, root := range []string{cache.RootTrip, cache.RootDriverDays, cache.RootAssignments} {
		p[root] = c.Stale.Resource
	}
	return p
}

// Window returns the configured timeline window
func (c *Config) Window() (timeline.Window, error) {
	return timeline.NewWindow(c.Timeline.StartHour, c.Timeline.EndHour, c.Timeline.MinWidth)
}

// Today returns the current date in the dispatch timezone
func (c *Config) Today() string {
	today, err := utils.TodayInTimezone(c.Timezone)
	if err != nil {
		return utils.FormatDate(time.Now())
	}
	return today
}

// ConfigDir returns the fleetboard directory under the user config dir
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, constants.AppName), nil
}
