// Package config loads grantcrm settings from a YAML file overlaid with
// GRANTCRM_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"grantcrm/internal/blob"
	"grantcrm/internal/core"
)

// Config is the full settings tree.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Access   AccessConfig   `yaml:"access"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Outreach OutreachConfig `yaml:"outreach"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Session  SessionConfig  `yaml:"session"`
}

// StorageConfig selects the byte store the collection is persisted to.
type StorageConfig struct {
	Driver      string   `yaml:"driver"` // memory, sqlite, postgres, fs, s3
	Key         string   `yaml:"key"`
	SQLitePath  string   `yaml:"sqlite_path"`
	PostgresDSN string   `yaml:"postgres_dsn"`
	FSRoot      string   `yaml:"fs_root"`
	S3          S3Config `yaml:"s3"`
}

// S3Config configures the s3 driver.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// AccessConfig configures the identity gate.
type AccessConfig struct {
	Domain string `yaml:"domain"`
}

// PipelineConfig tunes stage rules.
type PipelineConfig struct {
	StrictPromotion bool `yaml:"strict_promotion"`
}

// OutreachConfig selects the compose URI flavour.
type OutreachConfig struct {
	Client string `yaml:"client"` // gmail, mailto
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// SessionConfig locates the signed-in identity file.
type SessionConfig struct {
	Path string `yaml:"path"`
}

// DataDir returns the directory holding local state.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "grantcrm")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "grantcrm")
	}
	return "grantcrm-data"
}

// DefaultPath returns the config file location used when --config is unset.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "grantcrm", "config.yaml")
	}
	return "grantcrm.yaml"
}

// Default returns the built-in configuration.
func Default() *Config {
	data := DataDir()
	return &Config{
		Storage: StorageConfig{
			Driver:     string(core.StorageSQLite),
			Key:        core.DefaultCollectionKey,
			SQLitePath: filepath.Join(data, "grantcrm.db"),
			FSRoot:     filepath.Join(data, "blobs"),
			S3:         S3Config{Region: "us-east-1"},
		},
		Access:   AccessConfig{Domain: "lilipadlibrary.org"},
		Pipeline: PipelineConfig{StrictPromotion: true},
		Outreach: OutreachConfig{Client: string(core.ClientGmail)},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Session:  SessionConfig{Path: filepath.Join(data, "session.json")},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path atomically.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"GRANTCRM_STORAGE_DRIVER":       &c.Storage.Driver,
		"GRANTCRM_STORAGE_KEY":          &c.Storage.Key,
		"GRANTCRM_SQLITE_PATH":          &c.Storage.SQLitePath,
		"GRANTCRM_POSTGRES_DSN":         &c.Storage.PostgresDSN,
		"GRANTCRM_FS_ROOT":              &c.Storage.FSRoot,
		"GRANTCRM_S3_BUCKET":            &c.Storage.S3.Bucket,
		"GRANTCRM_S3_REGION":            &c.Storage.S3.Region,
		"GRANTCRM_S3_ENDPOINT":          &c.Storage.S3.Endpoint,
		"GRANTCRM_S3_ACCESS_KEY_ID":     &c.Storage.S3.AccessKeyID,
		"GRANTCRM_S3_SECRET_ACCESS_KEY": &c.Storage.S3.SecretAccessKey,
		"GRANTCRM_ACCESS_DOMAIN":        &c.Access.Domain,
		"GRANTCRM_OUTREACH_CLIENT":      &c.Outreach.Client,
		"GRANTCRM_LOG_LEVEL":            &c.Logging.Level,
		"GRANTCRM_LOG_FORMAT":           &c.Logging.Format,
		"GRANTCRM_METRICS_TEXTFILE":     &c.Metrics.Textfile,
		"GRANTCRM_SESSION_PATH":         &c.Session.Path,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	bools := map[string]*bool{
		"GRANTCRM_S3_PATH_STYLE":    &c.Storage.S3.PathStyle,
		"GRANTCRM_STRICT_PROMOTION": &c.Pipeline.StrictPromotion,
	}
	for name, dst := range bools {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		*dst = b
	}
	return nil
}

// Validate rejects settings no component can honour.
func (c *Config) Validate() error {
	known := false
	for _, d := range core.Drivers() {
		if core.StorageDriver(c.Storage.Driver) == d {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == string(core.StorageS3) && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage driver s3 requires s3.bucket")
	}
	switch core.OutreachClient(c.Outreach.Client) {
	case core.ClientGmail, core.ClientMailto:
	default:
		return fmt.Errorf("unknown outreach client %q", c.Outreach.Client)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if strings.TrimSpace(c.Access.Domain) == "" {
		return fmt.Errorf("access.domain is required")
	}
	return nil
}

// StorageOptions converts the storage section for core.OpenByteStore.
func (c *Config) StorageOptions() core.StorageConfig {
	s := c.Storage
	return core.StorageConfig{
		Driver:      core.StorageDriver(s.Driver),
		SQLitePath:  s.SQLitePath,
		PostgresDSN: s.PostgresDSN,
		FSRoot:      s.FSRoot,
		S3: blob.S3Config{
			Region:          s.S3.Region,
			Bucket:          s.S3.Bucket,
			Endpoint:        s.S3.Endpoint,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
			PathStyle:       s.S3.PathStyle,
		},
	}
}
