// Package config loads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TelegramConfig holds the chat transport settings.
type TelegramConfig struct {
	Token          string
	APIEndpoint    string
	FileEndpoint   string
	PollTimeoutSec int
}

// PrinterConfig holds the external tool settings used by the pipeline.
type PrinterConfig struct {
	PdfinfoPath string
	LpPath      string
	PrinterName string
	// IgnoreExitStatus restores the legacy behaviour of reporting success
	// even when lp exits non-zero.
	IgnoreExitStatus bool
	ToolTimeoutSec   int
}

// MinIOConfig holds object storage settings for the archive mirror.
// The mirror is disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether the archive mirror should be constructed.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// AppConfig is the centralized configuration struct for the bot.
// It is populated from environment variables and is read-only after startup.
type AppConfig struct {
	AdminChat string
	UploadDir string
	Timezone  string
	LogLevel  string
	OpsAddr   string
	Telegram  TelegramConfig
	Printer   PrinterConfig
	MinIO     MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Required values are not checked here; call Validate.
func Load() *AppConfig {
	return &AppConfig{
		AdminChat: strings.TrimSpace(getEnv("ADMIN_CHAT", "")),
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		Timezone:  getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		OpsAddr:   getEnv("OPS_ADDR", ""),
		Telegram: TelegramConfig{
			Token:          strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", "")),
			APIEndpoint:    getEnv("TELEGRAM_API_ENDPOINT", ""),
			FileEndpoint:   getEnv("TELEGRAM_FILE_ENDPOINT", ""),
			PollTimeoutSec: getEnvInt("TELEGRAM_POLL_TIMEOUT_SEC", 60),
		},
		Printer: PrinterConfig{
			PdfinfoPath:      getEnv("PDFINFO_PATH", "pdfinfo"),
			LpPath:           getEnv("LP_PATH", "lp"),
			PrinterName:      getEnv("PRINTER_NAME", ""),
			IgnoreExitStatus: getEnvBool("PRINT_IGNORE_EXIT_STATUS", false),
			ToolTimeoutSec:   getEnvInt("TOOL_TIMEOUT_SEC", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// Validate checks the values the process cannot start without.
// All problems are reported together.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.AdminChat == "" {
		errs = append(errs, errors.New("ADMIN_CHAT is required"))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR must not be empty"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.Telegram.PollTimeoutSec < 0 {
		errs = append(errs, errors.New("TELEGRAM_POLL_TIMEOUT_SEC must not be negative"))
	}
	if c.Printer.ToolTimeoutSec < 0 {
		errs = append(errs, errors.New("TOOL_TIMEOUT_SEC must not be negative"))
	}
	if c.MinIO.Enabled() && c.MinIO.Bucket == "" {
		errs = append(errs, errors.New("MINIO_BUCKET is required when MINIO_ENDPOINT is set"))
	}
	return errors.Join(errs...)
}

// Location returns the timezone used to format stored file names.
// Validate must have succeeded first; an invalid zone falls back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ToolTimeout returns the per-invocation timeout for external tools, zero for none.
func (c PrinterConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
