// Package config provides configuration loading and management for dbseed
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/supporttools/dbseed/pkg/fixtures"
)

// Supported target types
const (
	TargetMongoDB    = "mongodb"
	TargetMySQL      = "mysql"
	TargetPostgreSQL = "postgresql"
	TargetMemory     = "memory"
)

// TargetConfig defines the database the fixture is written to
type TargetConfig struct {
	Type           string `yaml:"type"` // mongodb, mysql, postgresql or memory
	URI            string `yaml:"uri"`  // full connection string, overrides host/port/credentials
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	Collection     string `yaml:"collection"` // collection for MongoDB, table for SQL targets
	ConnectTimeout string `yaml:"connectTimeout"`
	AuthSource     string `yaml:"authSource,omitempty"` // MongoDB only
	SSLMode        string `yaml:"sslMode,omitempty"`    // PostgreSQL only
}

// Timeout returns ConnectTimeout as a duration, falling back to 10s
func (t TargetConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(t.ConnectTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// PortNumber returns Port as an int, or the default port for the target type
func (t TargetConfig) PortNumber() int {
	if port, err := strconv.Atoi(t.Port); err == nil && port > 0 {
		return port
	}
	return DefaultPort(t.Type)
}

// DefaultPort returns the well-known port for a target type
func DefaultPort(targetType string) int {
	switch targetType {
	case TargetMongoDB:
		return 27017
	case TargetMySQL:
		return 3306
	case TargetPostgreSQL:
		return 5432
	default:
		return 0
	}
}

// MetricsConfig defines where run metrics are written
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"`
}

// AppConfig contains the complete application configuration
type AppConfig struct {
	Target      TargetConfig  `yaml:"target"`
	FixtureFile string        `yaml:"fixtureFile"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Debug       bool          `yaml:"debug"`
	LogFormat   string        `yaml:"logFormat"` // text, json or logfmt
	ConfigFile  string        `yaml:"-"`
}

// CFG is the global configuration object
var CFG AppConfig

// Override adjusts a configuration after file and environment loading, before defaults
type Override func(*AppConfig)

// LoadConfiguration loads configuration into CFG. An empty path falls back to SEED_CONFIG_FILE.
func LoadConfiguration(path string, overrides ...Override) error {
	cfg, err := Load(path, overrides...)
	if err != nil {
		return err
	}
	CFG = cfg
	return nil
}

// Load builds a configuration from the optional YAML file, then environment
// variables, then overrides. Defaults fill whatever is still unset.
func Load(path string, overrides ...Override) (AppConfig, error) {
	var cfg AppConfig

	if path == "" {
		path = os.Getenv("SEED_CONFIG_FILE")
	}
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return AppConfig{}, err
		}
		cfg.ConfigFile = path
	}

	loadFromEnvironment(&cfg)
	for _, override := range overrides {
		override(&cfg)
	}
	setDefaults(&cfg)

	return cfg, nil
}

// loadFromFile decodes a YAML configuration file into cfg
func loadFromFile(cfg *AppConfig, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnvironment overrides cfg with any environment variables that are set
func loadFromEnvironment(cfg *AppConfig) {
	cfg.Debug = parseEnvBool("DEBUG", cfg.Debug)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	t := &cfg.Target
	t.Type = strings.ToLower(getEnvOrDefault("SEED_TARGET_TYPE", t.Type))
	t.URI = getEnvOrDefault("SEED_TARGET_URI", t.URI)
	t.Host = getEnvOrDefault("SEED_DB_HOST", t.Host)
	t.Port = getEnvOrDefault("SEED_DB_PORT", t.Port)
	t.Username = getEnvOrDefault("SEED_DB_USERNAME", t.Username)
	t.Password = getEnvOrDefault("SEED_DB_PASSWORD", t.Password)
	t.Database = getEnvOrDefault("SEED_DATABASE", t.Database)
	t.Collection = getEnvOrDefault("SEED_COLLECTION", t.Collection)
	t.ConnectTimeout = getEnvOrDefault("SEED_CONNECT_TIMEOUT", t.ConnectTimeout)
	t.AuthSource = getEnvOrDefault("SEED_MONGO_AUTH_SOURCE", t.AuthSource)
	t.SSLMode = getEnvOrDefault("SEED_POSTGRES_SSLMODE", t.SSLMode)

	cfg.FixtureFile = getEnvOrDefault("SEED_FIXTURE_FILE", cfg.FixtureFile)
	cfg.Metrics.TextfilePath = getEnvOrDefault("SEED_METRICS_TEXTFILE", cfg.Metrics.TextfilePath)
}

// setDefaults ensures all config fields have reasonable default values
func setDefaults(cfg *AppConfig) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	t := &cfg.Target
	if t.Type == "" {
		t.Type = TargetMongoDB
	}
	if t.Host == "" && t.URI == "" && t.Type != TargetMemory {
		t.Host = "localhost"
	}
	if t.Port == "" && DefaultPort(t.Type) != 0 {
		t.Port = strconv.Itoa(DefaultPort(t.Type))
	}
	if t.Database == "" {
		t.Database = fixtures.DefaultDatabase
	}
	if t.Collection == "" {
		t.Collection = fixtures.DefaultCollection
	}
	if t.ConnectTimeout == "" {
		t.ConnectTimeout = "10s"
	}
	if t.Type == TargetMongoDB && t.AuthSource == "" {
		t.AuthSource = "admin"
	}
	if t.Type == TargetPostgreSQL && t.SSLMode == "" {
		t.SSLMode = "disable"
	}
}

// Validate validates the configuration
func (c *AppConfig) Validate() error {
	t := c.Target

	switch t.Type {
	case TargetMongoDB, TargetMySQL, TargetPostgreSQL:
		if t.URI == "" && t.Host == "" {
			return fmt.Errorf("%s target requires a host or a connection URI", t.Type)
		}
		if t.Port != "" {
			port, err := strconv.Atoi(t.Port)
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("invalid %s port: %s", t.Type, t.Port)
			}
		}
	case TargetMemory:
	default:
		return fmt.Errorf("unsupported target type %q (expected mongodb, mysql, postgresql or memory)", t.Type)
	}

	if t.Database == "" {
		return fmt.Errorf("target database name is required")
	}
	if t.Collection == "" {
		return fmt.Errorf("target collection name is required")
	}

	if t.ConnectTimeout != "" {
		if _, err := time.ParseDuration(t.ConnectTimeout); err != nil {
			return fmt.Errorf("invalid connect timeout: %v", err)
		}
	}

	switch c.LogFormat {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	return nil
}

// ValidateConfig validates the global configuration
func ValidateConfig() error {
	return CFG.Validate()
}

// Helper functions for environment variables

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value = strings.ToLower(value)

	switch value {
	case "1", "t", "true", "yes", "on", "enabled":
		return true
	case "0", "f", "false", "no", "off", "disabled":
		return false
	default:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			log.Warn("invalid boolean environment variable, using default", "key", key, "value", value, "default", defaultValue)
			return defaultValue
		}
		return boolValue
	}
}

// DisplayConfiguration logs the configuration while masking sensitive information
func DisplayConfiguration(logger *log.Logger, cfg AppConfig) {
	t := cfg.Target
	logger.Debug("configuration",
		"configFile", cfg.ConfigFile,
		"target", t.Type,
		"uri", maskURI(t.URI),
		"host", t.Host,
		"port", t.Port,
		"username", t.Username,
		"password", maskSensitiveInfo(t.Password),
		"database", t.Database,
		"collection", t.Collection,
		"connectTimeout", t.ConnectTimeout,
		"fixtureFile", cfg.FixtureFile,
		"metricsTextfile", cfg.Metrics.TextfilePath,
		"logFormat", cfg.LogFormat,
	)
}

// maskSensitiveInfo masks sensitive information for logging
func maskSensitiveInfo(info string) string {
	if info == "" {
		return "[not set]"
	}

	if len(info) <= 4 {
		return "****"
	}

	// Show first and last two characters, mask the rest
	return info[:2] + "****" + info[len(info)-2:]
}

// maskURI hides the password part of a user:password@host connection string
func maskURI(uri string) string {
	if uri == "" {
		return ""
	}
	at := strings.LastIndex(uri, "@")
	if at < 0 {
		return uri
	}
	scheme := strings.Index(uri, "://")
	start := 0
	if scheme >= 0 {
		start = scheme + 3
	}
	if start > at {
		return uri
	}
	userinfo := uri[start:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return uri
	}
	return uri[:start] + userinfo[:colon] + ":****" + uri[at:]
}
