package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"tabula/cmd/internal/fault"
	"tabula/cmd/security/token"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains all runtime configuration.
//
// Values are layered: defaults, then the optional YAML file, then TABULA_*
// environment variables, then command-line flags.
type Config struct {
	HTTPAddr  string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes"`
	MaxBodyBytes      int           `yaml:"max_body_bytes"`

	// StoreDriver selects the kv backend. Empty means postgres when
	// DatabaseURL is set, memory otherwise.
	StoreDriver       string        `yaml:"store"`
	DatabaseURL       string        `yaml:"database_url"`
	SQLitePath        string        `yaml:"sqlite_path"`
	SQLiteBusyTimeout time.Duration `yaml:"sqlite_busy_timeout"`
	DBMaxConns        int32         `yaml:"db_max_conns"`
	DBMinConns        int32         `yaml:"db_min_conns"`
	MigrateOnStart    bool          `yaml:"migrate_on_start"`

	TokenSecret         string `yaml:"token_secret"`
	TokenMinSecretBytes int    `yaml:"token_min_secret_bytes"`
	// If true, TokenSecret must be at least token.StrongSecretBytes long.
	RequireStrongSecret bool `yaml:"require_strong_secret"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	CORSMaxAgeSeconds  int      `yaml:"cors_max_age_seconds"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsPath    string `yaml:"metrics_path"`

	// If true, /readyz returns 503 while running on the memory store.
	ReadinessRequirePersistent bool `yaml:"readiness_require_persistent"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:  "0.0.0.0:8080",
		LogLevel:  "info",
		LogFormat: "json",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		MaxBodyBytes:      4 << 20,

		SQLitePath:        "tabula.db",
		SQLiteBusyTimeout: 5 * time.Second,
		DBMaxConns:        10,
		MigrateOnStart:    true,

		CORSAllowedOrigins: []string{"*"},
		CORSMaxAgeSeconds:  86400,

		MetricsPath: "/metrics",
	}
}

// LoadConfig builds the runtime Config from args, the environment and an optional file.
func LoadConfig(args []string) (Config, error) {
	const op = "app.LoadConfig"

	fs := pflag.NewFlagSet("tabula", pflag.ContinueOnError)
	configPath := fs.String("config", EnvString("TABULA_CONFIG", ""), "path to a YAML config file")
	addr := fs.String("addr", "", "HTTP listen address")
	driver := fs.String("store", "", "kv backend: memory, sqlite or postgres")
	if err := fs.Parse(args); err != nil {
		return Config{}, fault.Configuration(op, "invalid command line", err)
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return Config{}, fault.Configuration(op, "invalid config file", err)
		}
	}
	cfg.applyEnv()

	if fs.Changed("addr") {
		cfg.HTTPAddr = *addr
	}
	if fs.Changed("store") {
		cfg.StoreDriver = *driver
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, fault.Configuration(op, "invalid configuration", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = EnvString("TABULA_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = EnvString("TABULA_LOG_LEVEL", c.LogLevel)
	c.LogFormat = EnvString("TABULA_LOG_FORMAT", c.LogFormat)

	c.ReadHeaderTimeout = EnvDuration("TABULA_HTTP_READ_HEADER_TIMEOUT", c.ReadHeaderTimeout)
	c.ReadTimeout = EnvDuration("TABULA_HTTP_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = EnvDuration("TABULA_HTTP_WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = EnvDuration("TABULA_HTTP_IDLE_TIMEOUT", c.IdleTimeout)
	c.ShutdownTimeout = EnvDuration("TABULA_HTTP_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.MaxHeaderBytes = EnvInt("TABULA_HTTP_MAX_HEADER_BYTES", c.MaxHeaderBytes)
	c.MaxBodyBytes = EnvInt("TABULA_HTTP_MAX_BODY_BYTES", c.MaxBodyBytes)

	c.StoreDriver = EnvString("TABULA_STORE", c.StoreDriver)
	c.DatabaseURL = EnvString("TABULA_DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = EnvString("TABULA_SQLITE_PATH", c.SQLitePath)
	c.SQLiteBusyTimeout = EnvDuration("TABULA_SQLITE_BUSY_TIMEOUT", c.SQLiteBusyTimeout)
	c.DBMaxConns = EnvInt32("TABULA_DB_MAX_CONNS", c.DBMaxConns)
	c.DBMinConns = EnvInt32("TABULA_DB_MIN_CONNS", c.DBMinConns)
	c.MigrateOnStart = EnvBool("TABULA_MIGRATE_ON_START", c.MigrateOnStart)

	c.TokenSecret = EnvString(token.SecretEnvKey, c.TokenSecret)
	c.TokenMinSecretBytes = EnvInt("TABULA_TOKEN_MIN_SECRET_BYTES", c.TokenMinSecretBytes)
	c.RequireStrongSecret = EnvBool("TABULA_REQUIRE_STRONG_SECRET", c.RequireStrongSecret)

	c.CORSAllowedOrigins = EnvList("TABULA_CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.CORSMaxAgeSeconds = EnvInt("TABULA_CORS_MAX_AGE_SECONDS", c.CORSMaxAgeSeconds)

	c.MetricsEnabled = EnvBool("TABULA_METRICS_ENABLED", c.MetricsEnabled)
	c.MetricsPath = EnvString("TABULA_METRICS_PATH", c.MetricsPath)

	c.ReadinessRequirePersistent = EnvBool("TABULA_READINESS_REQUIRE_PERSISTENT", c.ReadinessRequirePersistent)
}

var errUnknownDriver = errors.New("unknown store driver")

func (c *Config) normalize() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = DriverMemory
		if c.DatabaseURL != "" {
			c.StoreDriver = DriverPostgres
		}
	}

	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres store requires TABULA_DATABASE_URL")
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, c.StoreDriver)
	}

	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		c.DBMinConns = c.DBMaxConns
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		c.MetricsPath = "/" + c.MetricsPath
	}
	return nil
}
