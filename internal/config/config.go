// Package config provides configuration management for the Photoshare server.
// Configuration can be loaded from YAML files, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection settings.
// Supports both PostgreSQL and SQLite backends.
type DatabaseConfig struct {
	// Driver specifies the database driver: "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`

	// PostgreSQL settings (used when Driver is "postgres")
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// SQLite settings (used when Driver is "sqlite")
	Path        string `mapstructure:"path"`         // Path to SQLite database file or ":memory:"
	JournalMode string `mapstructure:"journal_mode"` // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout int    `mapstructure:"busy_timeout"` // Milliseconds to wait for locks

	// AutoMigrate applies embedded migrations on server start.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection URL. Credentials are escaped so
// passwords may contain any character.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings.
// Redis backs the session cache when enabled.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds blob storage backend settings.
type StorageConfig struct {
	S3 S3StorageConfig `mapstructure:"s3"`

	// DeleteTimeout bounds the best-effort blob cleanup after an image is deleted.
	DeleteTimeout time.Duration `mapstructure:"delete_timeout"`
}

// S3StorageConfig holds S3 settings.
type S3StorageConfig struct {
	// Endpoint overrides the AWS endpoint (MinIO, localstack). Empty means AWS.
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// UploadConfig holds the policy attached to presigned upload slots.
type UploadConfig struct {
	// Expiry is how long a presigned upload stays valid.
	Expiry time.Duration `mapstructure:"expiry"`

	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64 `mapstructure:"max_size"`

	// ContentTypePrefix is the required Content-Type prefix.
	ContentTypePrefix string `mapstructure:"content_type_prefix"`

	// MaxFiles is the maximum number of slots per request.
	MaxFiles int `mapstructure:"max_files"`

	// ConfirmConcurrency bounds the number of records created in parallel.
	ConfirmConcurrency int `mapstructure:"confirm_concurrency"`
}

// AuthConfig holds session authentication settings.
type AuthConfig struct {
	// SessionHeader is the request header carrying the session id.
	SessionHeader string `mapstructure:"session_header"`

	// SessionCacheTTL is how long resolved sessions are cached. Zero disables caching.
	SessionCacheTTL time.Duration `mapstructure:"session_cache_ttl"`

	// BcryptCost is the bcrypt work factor for password hashes.
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the port for the metrics HTTP server.
	Port int `mapstructure:"port"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with PHOTOSHARE_ and use _ as separator.
// A .env file in the working directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("PHOTOSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/photoshare")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 1<<20) // 1MB of JSON

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "photoshare")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "photoshare")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.path", "./data/photoshare.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Storage defaults
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "photoshare")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.delete_timeout", 10*time.Second)

	// Upload defaults
	v.SetDefault("upload.expiry", 5*time.Minute)
	v.SetDefault("upload.max_size", 50*1024*1024) // 50MB
	v.SetDefault("upload.content_type_prefix", "image/")
	v.SetDefault("upload.max_files", 5)
	v.SetDefault("upload.confirm_concurrency", 4)

	// Auth defaults
	v.SetDefault("auth.session_header", "sessionid")
	v.SetDefault("auth.session_cache_ttl", 5*time.Minute)
	v.SetDefault("auth.bcrypt_cost", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 10*time.Minute)
}

// Validate checks the configuration for required values and valid ranges.
// Every section is checked and all problems are reported together.
func (c *Config) Validate() error {
	return errors.Join(
		c.Server.validate(),
		c.Database.validate(),
		c.Storage.validate(),
		c.Upload.validate(),
		c.Auth.validate(),
		c.Logging.validate(),
		c.Metrics.validate(),
	)
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}

func (c ServerConfig) validate() error {
	if !validPort(c.Port) {
		return errors.New("server.port must be between 1 and 65535")
	}
	return nil
}

func (c DatabaseConfig) validate() error {
	switch c.Driver {
	case "postgres":
		var errs []error
		for name, value := range map[string]string{
			"database.host":     c.Host,
			"database.user":     c.User,
			"database.database": c.Database,
		} {
			if value == "" {
				errs = append(errs, fmt.Errorf("%s is required for postgres driver", name))
			}
		}
		return errors.Join(errs...)
	case "sqlite":
		if c.Path == "" {
			return errors.New("database.path is required for sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", c.Driver)
	}
}

func (c StorageConfig) validate() error {
	var errs []error
	if c.S3.Bucket == "" {
		errs = append(errs, errors.New("storage.s3.bucket is required"))
	}
	if c.S3.Region == "" {
		errs = append(errs, errors.New("storage.s3.region is required"))
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		errs = append(errs, errors.New("storage.s3.access_key_id and storage.s3.secret_access_key must be set together"))
	}
	return errors.Join(errs...)
}

func (c UploadConfig) validate() error {
	var errs []error
	if c.Expiry <= 0 {
		errs = append(errs, errors.New("upload.expiry must be positive"))
	}
	if c.MaxSize <= 0 {
		errs = append(errs, errors.New("upload.max_size must be positive"))
	}
	if c.MaxFiles < 1 {
		errs = append(errs, errors.New("upload.max_files must be at least 1"))
	}
	if c.ConfirmConcurrency < 1 {
		errs = append(errs, errors.New("upload.confirm_concurrency must be at least 1"))
	}
	return errors.Join(errs...)
}

func (c AuthConfig) validate() error {
	var errs []error
	if c.SessionHeader == "" {
		errs = append(errs, errors.New("auth.session_header is required"))
	}
	if c.SessionCacheTTL < 0 {
		errs = append(errs, errors.New("auth.session_cache_ttl must not be negative"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return errors.Join(errs...)
}

func (c LoggingConfig) validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil || c.Level == "" {
		return fmt.Errorf("logging.level %q is not a valid level", c.Level)
	}
	return nil
}

func (c MetricsConfig) validate() error {
	if c.Enabled && !validPort(c.Port) {
		return errors.New("metrics.port must be between 1 and 65535")
	}
	return nil
}
