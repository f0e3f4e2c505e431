package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kigurumi-cli/api"
	"kigurumi-cli/calendar"
	"kigurumi-cli/session"
	"kigurumi-cli/storage"
)

const (
	ProviderIdentityToolkit = "identitytoolkit"
	ProviderLocal           = "local"
)

type Config struct {
	Endpoint string         `yaml:"endpoint"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Retry    RetryConfig    `yaml:"retry"`
	Calendar CalendarConfig `yaml:"calendar"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Items    []string       `yaml:"items"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type TimeoutsConfig struct {
	Default   time.Duration `yaml:"default"`
	Read      time.Duration `yaml:"read"`
	Bootstrap time.Duration `yaml:"bootstrap"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Delay      time.Duration `yaml:"delay"`
}

type CalendarConfig struct {
	DefaultLeadDays int `yaml:"default_lead_days"`
	HorizonDays     int `yaml:"horizon_days"`
}

type SessionConfig struct {
	MaxAge time.Duration `yaml:"max_age"`
}

type AuthConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	return &Config{
		Endpoint: api.DefaultEndpoint,
		Timeouts: TimeoutsConfig{
			Default:   api.TimeoutDefault,
			Read:      api.TimeoutRead,
			Bootstrap: api.TimeoutBootstrap,
		},
		Retry: RetryConfig{
			MaxRetries: api.DefaultMaxRetries,
			Delay:      api.DefaultRetryDelay,
		},
		Calendar: CalendarConfig{
			DefaultLeadDays: calendar.DefaultLeadDays,
			HorizonDays:     calendar.DefaultHorizonDays,
		},
		Session: SessionConfig{MaxAge: session.DefaultMaxAge},
		Auth:    AuthConfig{Provider: ProviderIdentityToolkit},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads .env, then the YAML file at path with environment variables
// expanded, then the KIGURUMI_* overrides. An empty path means the default
// file, which may be absent.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		p, err := storage.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KIGURUMI_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("KIGURUMI_AUTH_API_KEY"); v != "" {
		c.Auth.APIKey = v
	}
	if v := os.Getenv("KIGURUMI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		errs = append(errs, fmt.Errorf("endpoint must be an http(s) URL"))
	}
	if c.Timeouts.Default <= 0 || c.Timeouts.Read <= 0 || c.Timeouts.Bootstrap <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be positive"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative"))
	}
	if c.Calendar.DefaultLeadDays <= 0 {
		errs = append(errs, fmt.Errorf("calendar.default_lead_days must be positive"))
	}
	if c.Calendar.HorizonDays < c.Calendar.DefaultLeadDays {
		errs = append(errs, fmt.Errorf("calendar.horizon_days must be at least default_lead_days"))
	}
	if c.Session.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("session.max_age must be positive"))
	}
	switch c.Auth.Provider {
	case ProviderIdentityToolkit:
	case ProviderLocal:
		if c.Auth.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("auth.password_hash is required for the local provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth.provider %q", c.Auth.Provider))
	}
	if len(c.Items) > 0 {
		if _, err := calendar.NewCatalog(c.Items); err != nil {
			errs = append(errs, fmt.Errorf("items: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Catalog returns the configured items, or the default catalog.
func (c *Config) Catalog() (calendar.Catalog, error) {
	if len(c.Items) == 0 {
		return calendar.DefaultCatalog(), nil
	}
	return calendar.NewCatalog(c.Items)
}

func (c *Config) APITimeouts() api.Timeouts {
	return api.Timeouts{
		Default:   c.Timeouts.Default,
		Read:      c.Timeouts.Read,
		Bootstrap: c.Timeouts.Bootstrap,
	}
}

func (c *Config) Window() calendar.LeadTimeWindow {
	return calendar.LeadTimeWindow{
		LeadDays:    c.Calendar.DefaultLeadDays,
		HorizonDays: c.Calendar.HorizonDays,
	}
}
