package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// SMTPConfig is the outgoing mail server. Mail is disabled when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     string
	Sender   string
	Password string
}

// Config holds every setting of the portal server.
type Config struct {
	Port           string
	StoreDriver    string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	TokenExpiry    time.Duration
	AdminPassword  string
	AdminEmail     string
	AllowedOrigins []string
	UploadDir      string
	LogLevel       string
	ReloadSchedule string
	SweepSchedule  string
	SMTP           SMTPConfig
}

// LoadConfig reads .env (when present) and the environment. Invalid settings are fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, reading configuration from the environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := Load(v)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	return cfg
}

// Load builds a Config from v, applying defaults for unset keys.
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "agency_portal")
	v.SetDefault("TOKEN_EXPIRY", "24h")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RELOAD_SCHEDULE", "@every 5m")
	v.SetDefault("SWEEP_SCHEDULE", "0 6 * * *")
	v.SetDefault("SMTP_PORT", "587")

	expiry, err := time.ParseDuration(v.GetString("TOKEN_EXPIRY"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_EXPIRY: %w", err)
	}

	cfg := &Config{
		Port:           v.GetString("PORT"),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDB:        v.GetString("MONGO_DB"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenExpiry:    expiry,
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		AdminEmail:     strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		ReloadSchedule: v.GetString("RELOAD_SCHEDULE"),
		SweepSchedule:  v.GetString("SWEEP_SCHEDULE"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Sender:   v.GetString("SMTP_SENDER"),
			Password: v.GetString("SMTP_PASSWORD"),
		},
	}

	if cfg.StoreDriver != DriverMongo && cfg.StoreDriver != DriverMemory {
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
