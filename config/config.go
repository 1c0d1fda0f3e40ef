// Package config loads service configuration.
//
// Precedence is environment > YAML file > built-in defaults. A .env file in the
// working directory is read into the environment before anything else.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/meal-journal/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
	Janitor  JanitorConfig  `koanf:"janitor"`
}

type ServerConfig struct {
	Port           int    `koanf:"port"`
	AllowedOrigins string `koanf:"allowed_origins"` // comma separated
	BodyLimitMB    int    `koanf:"body_limit_mb"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type StorageConfig struct {
	Driver        string   `koanf:"driver"` // local | r2
	LocalDir      string   `koanf:"local_dir"`
	PublicBaseURL string   `koanf:"public_base_url"`
	MaxPhotoMB    int      `koanf:"max_photo_mb"`
	R2            R2Config `koanf:"r2"`
}

type R2Config struct {
	AccountID       string `koanf:"account_id"`
	AccessKeyID     string `koanf:"access_key_id"`
	AccessKeySecret string `koanf:"access_key_secret"`
	Bucket          string `koanf:"bucket"`
	CDNBaseURL      string `koanf:"cdn_base_url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type JanitorConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           5000,
			AllowedOrigins: "http://localhost:3000",
			BodyLimitMB:    50,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Storage: StorageConfig{
			Driver:        "local",
			LocalDir:      "uploads",
			PublicBaseURL: "http://localhost:5000/uploads",
			MaxPhotoMB:    20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
	}
}

// envMappings maps the flat environment names used in deployment to koanf paths.
var envMappings = map[string]string{
	"port":                  "server.port",
	"allowed_origins":       "server.allowed_origins",
	"body_limit_mb":         "server.body_limit_mb",
	"database_url":          "database.url",
	"db_max_open_conns":     "database.max_open_conns",
	"db_max_idle_conns":     "database.max_idle_conns",
	"db_conn_max_lifetime":  "database.conn_max_lifetime",
	"jwt_secret":            "auth.jwt_secret",
	"token_ttl":             "auth.token_ttl",
	"storage_driver":        "storage.driver",
	"upload_dir":            "storage.local_dir",
	"public_base_url":       "storage.public_base_url",
	"max_photo_mb":          "storage.max_photo_mb",
	"cloudflare_account_id": "storage.r2.account_id",
	"r2_access_key_id":      "storage.r2.access_key_id",
	"r2_access_key_secret":  "storage.r2.access_key_secret",
	"r2_bucket_name":        "storage.r2.bucket",
	"cdn_base_url":          "storage.r2.cdn_base_url",
	"log_level":             "log.level",
	"log_format":            "log.format",
	"janitor_enabled":       "janitor.enabled",
	"janitor_interval":      "janitor.interval",
}

// envTransformFunc returns "" for variables that are not ours, which makes
// koanf skip them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads .env, the optional YAML file and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database url is required (DATABASE_URL)"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required (JWT_SECRET)"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	switch c.Storage.Driver {
	case "local":
	case "r2":
		if c.Storage.R2.AccountID == "" || c.Storage.R2.Bucket == "" {
			errs = append(errs, errors.New("r2 storage needs CLOUDFLARE_ACCOUNT_ID and R2_BUCKET_NAME"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Janitor.Enabled && c.Janitor.Interval <= 0 {
		errs = append(errs, errors.New("janitor interval must be positive"))
	}
	return errors.Join(errs...)
}

// AllowedOriginsList splits and trims the comma separated origin list.
func (s ServerConfig) AllowedOriginsList() []string {
	var out []string
	for _, origin := range strings.Split(s.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
