// Package config loads graphpart configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-graphpart/pkg/auth"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/gpmetis"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/metis"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/native"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	servertls "github.com/dd0wney/cluso-graphpart/pkg/tls"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

// Environment variables that override file settings.
const (
	EnvEngine   = "GRAPHPART_ENGINE"
	EnvAddr     = "GRAPHPART_ADDR"
	EnvWorkers  = "GRAPHPART_WORKERS"
	EnvLogLevel = "LOG_LEVEL"
	// EnvJWTSecret keeps the signing secret out of config files.
	EnvJWTSecret = "GRAPHPART_JWT_SECRET"
)

// Defaults
const (
	DefaultEngine          = native.Name
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 64 << 20
	DefaultQueueSize       = 256
	DefaultLogLevel        = "info"
	DefaultLogOutput       = "stderr"
	DefaultTokenTTL        = 24 * time.Hour
)

// Engines lists the accepted engine names.
var Engines = []string{native.Name, gpmetis.Name, metis.Name}

// Config is the full graphpart configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Server  ServerConfig  `yaml:"server"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
	Auth    AuthConfig    `yaml:"auth"`
	NNG     NNGConfig     `yaml:"nng"`
}

// EngineConfig selects and tunes the engine.
type EngineConfig struct {
	Name string `yaml:"name"`

	// native
	LeafSize int `yaml:"leaf_size"`
	Trials   int `yaml:"trials"`

	// gpmetis
	GPMetisPath string `yaml:"gpmetis_path"`
	NDMetisPath string `yaml:"ndmetis_path"`
	WorkDir     string `yaml:"work_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string           `yaml:"addr"`
	ReadTimeout     time.Duration    `yaml:"read_timeout"`
	WriteTimeout    time.Duration    `yaml:"write_timeout"`
	ShutdownTimeout time.Duration    `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64            `yaml:"max_body_bytes"`
	TLS             servertls.Config `yaml:"tls"`
}

// BatchConfig sizes the worker pool. Zero workers means one per CPU.
type BatchConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig selects the log level and destination (stdout, stderr or
// a file path).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// AuthConfig enables request authentication. With no secret and no key
// hashes the API is open.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	APIKeyHashes []string      `yaml:"api_key_hashes"`
}

// Enabled reports whether any credential kind is configured.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || len(a.APIKeyHashes) > 0
}

// Authenticator builds the request authenticator.
func (a AuthConfig) Authenticator() (*auth.Authenticator, error) {
	var tokens *auth.TokenManager
	if a.JWTSecret != "" {
		var err error
		if tokens, err = auth.NewTokenManager(a.JWTSecret, a.TokenTTL); err != nil {
			return nil, err
		}
	}
	keys, err := auth.NewKeyStore(a.APIKeyHashes)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(tokens, keys), nil
}

// NNGConfig enables the request/reply socket listener. An empty address
// leaves it off.
type NNGConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path, applies defaults and environment overrides and
// validates the result. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyDefaults()
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	c.Engine.Name = validation.DefaultOr(strings.ToLower(c.Engine.Name), DefaultEngine)

	c.Server.Addr = validation.DefaultOr(c.Server.Addr, DefaultAddr)
	c.Server.ReadTimeout = validation.DefaultOrDuration(c.Server.ReadTimeout, DefaultReadTimeout)
	c.Server.WriteTimeout = validation.DefaultOrDuration(c.Server.WriteTimeout, DefaultWriteTimeout)
	c.Server.ShutdownTimeout = validation.DefaultOrDuration(c.Server.ShutdownTimeout, DefaultShutdownTimeout)
	c.Server.MaxBodyBytes = validation.DefaultOr(c.Server.MaxBodyBytes, DefaultMaxBodyBytes)

	c.Batch.QueueSize = validation.DefaultOrInt(c.Batch.QueueSize, DefaultQueueSize)

	c.Logging.Level = validation.DefaultOr(c.Logging.Level, DefaultLogLevel)
	c.Logging.Output = validation.DefaultOr(c.Logging.Output, DefaultLogOutput)

	c.Auth.TokenTTL = validation.DefaultOrDuration(c.Auth.TokenTTL, DefaultTokenTTL)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvEngine); v != "" {
		c.Engine.Name = strings.ToLower(v)
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Batch.Workers = n
	}
	return nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	return validation.NewConfigValidator("graphpart").
		OneOf("engine.name", c.Engine.Name, Engines).
		NonNegative("engine.leaf_size", c.Engine.LeafSize).
		NonNegative("engine.trials", c.Engine.Trials).
		Required("server.addr", c.Server.Addr).
		MinDuration("server.read_timeout", c.Server.ReadTimeout, time.Second).
		MinDuration("server.write_timeout", c.Server.WriteTimeout, time.Second).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, 0).
		Positive("server.max_body_bytes", int(c.Server.MaxBodyBytes)).
		NonNegative("batch.workers", c.Batch.Workers).
		Positive("batch.queue_size", c.Batch.QueueSize).
		OneOf("logging.level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "error"}).
		Required("logging.output", c.Logging.Output).
		When(c.Server.TLS.CertFile != "" || c.Server.TLS.KeyFile != "", func(cv *validation.ConfigValidator) {
			cv.Required("server.tls.cert_file", c.Server.TLS.CertFile).
				Required("server.tls.key_file", c.Server.TLS.KeyFile).
				Readable("server.tls.cert_file", c.Server.TLS.CertFile).
				Readable("server.tls.key_file", c.Server.TLS.KeyFile)
		}).
		Readable("server.tls.ca_file", c.Server.TLS.CAFile).
		When(c.Auth.JWTSecret != "", func(cv *validation.ConfigValidator) {
			cv.RangeInt("auth.jwt_secret length", len(c.Auth.JWTSecret), auth.MinSecretLength, 4096).
				MinDuration("auth.token_ttl", c.Auth.TokenTTL, time.Minute)
		}).
		Custom("auth.api_key_hashes", func() error {
			_, err := auth.NewKeyStore(c.Auth.APIKeyHashes)
			return err
		}).
		Validate()
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

// Open constructs the configured engine.
func (e EngineConfig) Open() (engine.Engine, error) {
	switch e.Name {
	case native.Name, "":
		return native.NewWithConfig(native.Config{LeafSize: e.LeafSize, Trials: e.Trials}), nil
	case gpmetis.Name:
		g := gpmetis.New(gpmetis.Config{GPMetisPath: e.GPMetisPath, NDMetisPath: e.NDMetisPath, WorkDir: e.WorkDir})
		if err := g.Available(); err != nil {
			return nil, fmt.Errorf("engine %s: %w", e.Name, err)
		}
		return g, nil
	case metis.Name:
		return metis.Open()
	}
	return nil, fmt.Errorf("unknown engine %q", e.Name)
}
