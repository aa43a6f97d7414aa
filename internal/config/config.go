package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Application
	AppEnv   string
	LogLevel string
	LogFile  string

	// Operator alerts
	AlertBotToken string
	AlertChatID   int64

	// Payment provider notices
	ProviderNoticeSecret string

	// Gift velocity
	GiftRateLimit         int
	GiftRateWindowSeconds int

	// Risk
	FrozenCheckFailOpen bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "economy"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "economy_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AlertBotToken: getEnv("ALERT_BOT_TOKEN", ""),

		ProviderNoticeSecret: getEnv("PROVIDER_NOTICE_SECRET", ""),

		GiftRateLimit:         getEnvInt("GIFT_RATE_LIMIT", 30),
		GiftRateWindowSeconds: getEnvInt("GIFT_RATE_WINDOW_SECONDS", 60),

		FrozenCheckFailOpen: getEnvBool("FROZEN_CHECK_FAIL_OPEN", true),
	}

	// Parse alert chat ID
	chatStr := getEnv("ALERT_CHAT_ID", "")
	if chatStr != "" {
		id, err := strconv.ParseInt(chatStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ALERT_CHAT_ID: %w", err)
		}
		cfg.AlertChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.ProviderNoticeSecret != "" && len(c.ProviderNoticeSecret) < 32 {
		return fmt.Errorf("PROVIDER_NOTICE_SECRET must be at least 32 characters")
	}
	if c.AlertBotToken != "" && c.AlertChatID == 0 {
		return fmt.Errorf("ALERT_CHAT_ID is required when ALERT_BOT_TOKEN is set")
	}
	if c.GiftRateLimit <= 0 {
		return fmt.Errorf("GIFT_RATE_LIMIT must be positive")
	}
	if c.GiftRateWindowSeconds <= 0 {
		return fmt.Errorf("GIFT_RATE_WINDOW_SECONDS must be positive")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.ProviderNoticeSecret == "" {
		return fmt.Errorf("PROVIDER_NOTICE_SECRET must be set in production")
	}
	if c.AlertBotToken == "" || c.AlertChatID == 0 {
		return fmt.Errorf("ALERT_BOT_TOKEN and ALERT_CHAT_ID must be set in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetGiftRateWindow() time.Duration {
	return time.Duration(c.GiftRateWindowSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
