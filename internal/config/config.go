package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	ClinicTimezone string `mapstructure:"CLINIC_TIMEZONE"`
	ClinicName     string `mapstructure:"CLINIC_NAME"`
	ClinicAddress  string `mapstructure:"CLINIC_ADDRESS"`

	BlobBackend    string        `mapstructure:"BLOB_BACKEND"`
	AWSRegion      string        `mapstructure:"AWS_REGION"`
	AWSAccessKey   string        `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string        `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	S3Bucket       string        `mapstructure:"S3_BUCKET"`
	BlobSigningKey string        `mapstructure:"BLOB_SIGNING_KEY"`
	PublicBaseURL  string        `mapstructure:"PUBLIC_BASE_URL"`
	BlobTimeout    time.Duration `mapstructure:"BLOB_TIMEOUT"`
	SignedURLTTL   time.Duration `mapstructure:"SIGNED_URL_TTL"`

	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `mapstructure:"OPENAI_BASE_URL"`
	AITextModel   string        `mapstructure:"AI_TEXT_MODEL"`
	AIVisionModel string        `mapstructure:"AI_VISION_MODEL"`
	AITimeout     time.Duration `mapstructure:"AI_TIMEOUT"`

	EventsTopicARN string `mapstructure:"EVENTS_TOPIC_ARN"`

	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"CLINIC_TIMEZONE", "CLINIC_NAME", "CLINIC_ADDRESS",
	"BLOB_BACKEND", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "S3_BUCKET",
	"BLOB_SIGNING_KEY", "PUBLIC_BASE_URL", "BLOB_TIMEOUT", "SIGNED_URL_TTL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "AI_TEXT_MODEL", "AI_VISION_MODEL", "AI_TIMEOUT",
	"EVENTS_TOPIC_ARN",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "90s")
	v.SetDefault("BODY_LIMIT", "25M")
	v.SetDefault("CLINIC_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("CLINIC_NAME", "Health Plus Clinic")
	v.SetDefault("CLINIC_ADDRESS", "123 Medical Avenue, City")
	v.SetDefault("BLOB_BACKEND", "")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("BLOB_TIMEOUT", "30s")
	v.SetDefault("SIGNED_URL_TTL", "1h")
	v.SetDefault("AI_TEXT_MODEL", "gpt-4o")
	v.SetDefault("AI_VISION_MODEL", "gpt-4o")
	v.SetDefault("AI_TIMEOUT", "120s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.BlobBackend == "" {
		cfg.BlobBackend = "s3"
		if cfg.IsDev() {
			cfg.BlobBackend = "memory"
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves the clinic time zone used for same-day version checks.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is usable before the server starts.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.BlobBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND is \"s3\"")
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when BLOB_BACKEND is \"s3\"")
		}
	case "memory":
		if !c.IsDev() && c.BlobSigningKey == "" {
			return fmt.Errorf("BLOB_SIGNING_KEY is required for the memory blob backend outside development")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be \"s3\" or \"memory\", got %q", c.BlobBackend)
	}

	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be positive")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
