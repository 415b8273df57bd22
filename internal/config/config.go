// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlatformMode controls who may publish.
type PlatformMode string

const (
	// PlatformModeBeta restricts publishing to admins and approved beta users.
	PlatformModeBeta PlatformMode = "BETA"
	// PlatformModeNatural lets any account publish.
	PlatformModeNatural PlatformMode = "NATURAL"
)

// ParsePlatformMode normalizes a raw PLATFORM_MODE value. Unknown values are rejected.
func ParsePlatformMode(raw string) (PlatformMode, error) {
	switch PlatformMode(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", PlatformModeNatural:
		return PlatformModeNatural, nil
	case PlatformModeBeta:
		return PlatformModeBeta, nil
	default:
		return "", fmt.Errorf("unknown PLATFORM_MODE %q (want BETA or NATURAL)", raw)
	}
}

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode   string `mapstructure:"DB_SCHEMA_MODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	Env            string `mapstructure:"APP_ENV"`

	// PlatformModeRaw is the unparsed PLATFORM_MODE; use PlatformMode.
	PlatformModeRaw          string       `mapstructure:"PLATFORM_MODE"`
	PlatformMode             PlatformMode `mapstructure:"-"`
	AdminSetupSecret         string       `mapstructure:"ADMIN_SETUP_SECRET"`
	MaxImageUploadsPerHour   int          `mapstructure:"MAX_IMAGE_UPLOADS_PER_HOUR"`
	ImageMaxUploadSizeMB     int          `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	VideoMaxUploadSizeMB     int          `mapstructure:"VIDEO_MAX_UPLOAD_SIZE_MB"`
	AppBaseURL               string       `mapstructure:"APP_BASE_URL"`
	PublicMediaBaseURL       string       `mapstructure:"PUBLIC_MEDIA_BASE_URL"`
	DBConnMaxLifetimeMinutes int          `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBMaxOpenConns           int          `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int          `mapstructure:"DB_MAX_IDLE_CONNS"`

	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	S3Bucket           string `mapstructure:"AWS_S3_BUCKET"`
	S3Endpoint         string `mapstructure:"AWS_S3_ENDPOINT"`

	DevBootstrapRoot        bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername         string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail            string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword         string `mapstructure:"DEV_ROOT_PASSWORD"`
	DevRootForceCredentials bool   `mapstructure:"DEV_ROOT_FORCE_CREDENTIALS"`
	DevSeedPreset           string `mapstructure:"DEV_SEED_PRESET"`

	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	EmailFrom    string `mapstructure:"EMAIL_FROM"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// IsProduction reports whether the production hardening rules apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// S3Enabled reports whether object storage credentials are configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.AWSRegion != ""
}

// LoadConfig loads application configuration from .env, file, and environment variables.
func LoadConfig() (*Config, error) {
	// A local .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARNING: failed to parse .env: %v", err)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inkwell")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "wallet_verification=on,consumption_tracking=on")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PLATFORM_MODE", string(PlatformModeNatural))
	viper.SetDefault("ADMIN_SETUP_SECRET", "")
	viper.SetDefault("MAX_IMAGE_UPLOADS_PER_HOUR", 5)
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("VIDEO_MAX_UPLOAD_SIZE_MB", 500)
	viper.SetDefault("APP_BASE_URL", "http://localhost:5173")
	viper.SetDefault("PUBLIC_MEDIA_BASE_URL", "")
	viper.SetDefault("AWS_REGION", "")
	viper.SetDefault("AWS_ACCESS_KEY_ID", "")
	viper.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	viper.SetDefault("AWS_S3_BUCKET", "")
	viper.SetDefault("AWS_S3_ENDPOINT", "")
	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "")
	viper.SetDefault("DEV_ROOT_EMAIL", "")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
	viper.SetDefault("DEV_ROOT_FORCE_CREDENTIALS", false)
	viper.SetDefault("DEV_SEED_PRESET", "")
	viper.SetDefault("RESEND_API_KEY", "")
	viper.SetDefault("EMAIL_FROM", "Inkwell <no-reply@inkwell.local>")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	mode, err := ParsePlatformMode(config.PlatformModeRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.PlatformMode = mode

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.MaxImageUploadsPerHour < 0 {
		return errors.New("MAX_IMAGE_UPLOADS_PER_HOUR must not be negative")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AdminSetupSecret != "" && len(c.AdminSetupSecret) < 24 {
			return errors.New("ADMIN_SETUP_SECRET must be at least 24 characters in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
		if c.ResendAPIKey == "" {
			log.Println("WARNING: RESEND_API_KEY is empty in production; emails will only be logged.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
