package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://82.112.226.134",
	"https://vectorinstruments.netlify.app",
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Name   string `yaml:"name"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"`
	UploadDir  string `yaml:"upload_dir"`
	MaxBytes   int64  `yaml:"max_bytes"`
	PathPrefix string `yaml:"path_prefix"`

	S3Bucket          string `yaml:"s3_bucket"`
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3Region          string `yaml:"s3_region"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	NotifyTo string `yaml:"notify_to"`
}

// Enabled reports whether enough settings are present to send mail.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.NotifyTo != ""
}

type LoggerConfig struct {
	Mode     string `yaml:"mode"`
	Filename string `yaml:"filename"`
}

type AppConfig struct {
	Port               string         `yaml:"port"`
	Debug              bool           `yaml:"debug"`
	JWTSecret          string         `yaml:"jwt_secret"`
	ProtectWrites      bool           `yaml:"protect_writes"`
	RateLimitPerMinute int            `yaml:"rate_limit_per_minute"`
	CORSOrigins        []string       `yaml:"cors_origins"`
	Database           DatabaseConfig `yaml:"database"`
	Storage            StorageConfig  `yaml:"storage"`
	Mail               MailConfig     `yaml:"mail"`
	Logger             LoggerConfig   `yaml:"logger"`
}

func Default() *AppConfig {
	return &AppConfig{
		Port:               "3000",
		RateLimitPerMinute: 20,
		CORSOrigins:        append([]string(nil), defaultOrigins...),
		Database: DatabaseConfig{
			Driver: "mongo",
			Name:   "catalog",
		},
		Storage: StorageConfig{
			Backend:   "disk",
			UploadDir: "uploads",
			MaxBytes:  32 << 20,
			S3Region:  "auto",
		},
		Mail:   MailConfig{Port: 465},
		Logger: LoggerConfig{Mode: "development"},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the process environment, in that order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		zap.S().Warnf("Error loading .env file: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	setString(&c.Port, "APP_PORT")
	setBool(&c.Debug, "DEBUG_MODE")
	setString(&c.JWTSecret, "JWT_SECRET")
	setBool(&c.ProtectWrites, "AUTH_PROTECT_WRITES")
	if v, ok := os.LookupEnv("RATE_LIMIT_PER_MINUTE"); ok {
		c.RateLimitPerMinute = cast.ToInt(v)
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.URL, "DB_URL")
	setString(&c.Database.Name, "DB_NAME")

	setString(&c.Storage.Backend, "BLOB_BACKEND")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	if v, ok := os.LookupEnv("UPLOAD_MAX_BYTES"); ok {
		c.Storage.MaxBytes = cast.ToInt64(v)
	}
	setString(&c.Storage.PathPrefix, "PUBLIC_PATH_PREFIX")
	setString(&c.Storage.S3Bucket, "S3_BUCKET")
	setString(&c.Storage.S3Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.S3Region, "S3_REGION")
	setString(&c.Storage.S3AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&c.Storage.S3SecretAccessKey, "S3_SECRET_ACCESS_KEY")

	setString(&c.Mail.Host, "EMAIL_HOST")
	if v, ok := os.LookupEnv("EMAIL_PORT"); ok {
		c.Mail.Port = cast.ToInt(v)
	}
	setString(&c.Mail.User, "EMAIL_USER")
	setString(&c.Mail.Password, "EMAIL_PASS")
	setString(&c.Mail.NotifyTo, "EMAIL_NOTIFY_TO")

	setString(&c.Logger.Mode, "LOG_MODE")
	setString(&c.Logger.Filename, "LOG_FILE")
}

// Validate checks the settings the server cannot start without.
func (c *AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	switch c.Database.Driver {
	case "mongo", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	switch c.Storage.Backend {
	case "disk":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.Storage.Backend)
	}
	if c.Storage.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	c.Storage.PathPrefix = strings.TrimRight(c.Storage.PathPrefix, "/")
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = cast.ToBool(strings.TrimSpace(v))
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
