package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the process configuration
type Config struct {
	Host      string `env:"HOST" envDefault:"localhost"`
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Broker BrokerConfig `envPrefix:"BROKER_"`
	Auth   AuthConfig   `envPrefix:"AUTH_"`
	Ngrok  NgrokConfig  `envPrefix:"NGROK_"`
}

// BrokerConfig tunes the session registry
type BrokerConfig struct {
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"10s"`
	ProbeTimeout     time.Duration `env:"PROBE_TIMEOUT" envDefault:"2s"`
	ConnBuffer       int           `env:"CONN_BUFFER" envDefault:"10"`
	SweepConcurrency int           `env:"SWEEP_CONCURRENCY" envDefault:"16"`
}

// AuthConfig configures token verification and guest identities
type AuthConfig struct {
	Secret       string        `env:"SECRET"`
	SecretFile   string        `env:"SECRET_FILE,file"`
	Issuer       string        `env:"ISSUER" envDefault:"chess-broker"`
	GuestTTL     time.Duration `env:"GUEST_TTL" envDefault:"720h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// NgrokConfig enables the optional public tunnel
type NgrokConfig struct {
	Enabled   bool   `env:"ENABLED" envDefault:"false"`
	AuthToken string `env:"AUTHTOKEN"`
	Domain    string `env:"DOMAIN"`
}

// Load reads .env (when present) and then the process environment
func Load() (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return finish(&cfg)
}

// LoadFrom parses the given variables instead of the process environment
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	// secrets mounted from files usually end with a newline
	cfg.Auth.SecretFile = strings.TrimSpace(cfg.Auth.SecretFile)
	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	if cfg.Auth.SecretFile != "" {
		cfg.Auth.Secret = cfg.Auth.SecretFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT %d out of range", ErrInvalidConfig, c.Port)
	case c.Broker.SweepInterval <= 0:
		return fmt.Errorf("%w: BROKER_SWEEP_INTERVAL must be positive", ErrInvalidConfig)
	case c.Broker.ProbeTimeout <= 0:
		return fmt.Errorf("%w: BROKER_PROBE_TIMEOUT must be positive", ErrInvalidConfig)
	case c.Broker.ProbeTimeout >= c.Broker.SweepInterval:
		return fmt.Errorf("%w: BROKER_PROBE_TIMEOUT must be shorter than BROKER_SWEEP_INTERVAL", ErrInvalidConfig)
	case c.Broker.ConnBuffer <= 0:
		return fmt.Errorf("%w: BROKER_CONN_BUFFER must be positive", ErrInvalidConfig)
	case c.Broker.SweepConcurrency <= 0:
		return fmt.Errorf("%w: BROKER_SWEEP_CONCURRENCY must be positive", ErrInvalidConfig)
	case c.Auth.Secret == "":
		return fmt.Errorf("%w: AUTH_SECRET or AUTH_SECRET_FILE is required", ErrInvalidConfig)
	case c.Auth.GuestTTL <= 0:
		return fmt.Errorf("%w: AUTH_GUEST_TTL must be positive", ErrInvalidConfig)
	case c.LogFormat != "json" && c.LogFormat != "console":
		return fmt.Errorf("%w: LOG_FORMAT must be json or console", ErrInvalidConfig)
	case c.Ngrok.Enabled && c.Ngrok.AuthToken == "":
		return fmt.Errorf("%w: NGROK_AUTHTOKEN is required when NGROK_ENABLED is set", ErrInvalidConfig)
	}
	return nil
}

// Addr is the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SetAddr overrides host and port from a host:port string
func (c *Config) SetAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: address %q: %v", ErrInvalidConfig, addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, port)
	}
	c.Host, c.Port = host, p
	return nil
}
