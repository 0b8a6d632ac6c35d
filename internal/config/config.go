// Package config provides environment-aware configuration for server
// processes and the installer, following the teacher's env-first loading
// convention (godotenv for an optional .env file, typed getters with
// defaults).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names the deployment environment, mirroring the teacher's
// Development/Testing/Production enum.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// Config holds everything a server entry point or the installer needs
// before the lifecycle engine starts.
type Config struct {
	Env Environment

	// ServerDescriptor defaults (spec.md §3.3); CLI flags/params can
	// still override Port/Max per spec.md §6.
	ServiceName   string
	Description   string
	DefaultPort   int
	EventName     string
	RequiresLogin bool

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string

	// Name service / rebinder
	NameServiceAddr string
	RebindInterval  time.Duration
	RebindTimeout   time.Duration

	// Admin endpoint
	AdminBindingTemplate string
	AdminListenAddr      string
	AdminAuthToken       string
	AdminRateLimitRPS    int
	AdminRateLimitBurst  int

	// Installer
	InstallSourceImage string
	InstallTargetPath  string
	InstallBackupPath  string
	InstallHistoryDSN  string
}

// Load reads process environment variables, optionally seeded from a
// CQCSRV_ENV-selected .env file under config/.
func Load() (*Config, error) {
	envStr := os.Getenv("CQCSRV_ENV")
	if envStr == "" {
		envStr = string(Development)
	}
	env := Environment(envStr)
	switch env {
	case Development, Testing, Production:
	default:
		return nil, fmt.Errorf("invalid CQCSRV_ENV: %s (must be development, testing, or production)", envStr)
	}

	envFile := fmt.Sprintf("config/%s.env", env)
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		fmt.Printf("warning: could not load %s: %v\n", envFile, err)
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// New returns a Development Config populated from process environment
// variables and their defaults, without checking CQCSRV_ENV or loading a
// .env file; a load error (an invalid duration variable) is discarded.
// Used by tests and by callers that build configuration programmatically.
func New() *Config {
	cfg := &Config{Env: Development}
	_ = cfg.loadFromEnv()
	return cfg
}

func (c *Config) loadFromEnv() error {
	c.ServiceName = getEnv("CQCSRV_NAME", "CQCServer")
	c.Description = getEnv("CQCSRV_DESCR", "CQC Server")
	c.DefaultPort = getIntEnv("CQCSRV_PORT", 13502)
	c.EventName = getEnv("CQCSRV_EVENT_NAME", c.ServiceName+"MainEvent")
	c.RequiresLogin = getBoolEnv("CQCSRV_REQUIRES_LOGIN", false)

	c.LogLevel = getEnv("CQCSRV_LOG_LEVEL", "info")
	c.LogFormat = getEnv("CQCSRV_LOG_FORMAT", "text")
	c.LogOutput = getEnv("CQCSRV_LOG_OUTPUT", "stdout")

	c.NameServiceAddr = getEnv("CQCSRV_NAMESERVICE_ADDR", "localhost:6379")
	rebindInterval := getEnv("CQCSRV_REBIND_INTERVAL", "30s")
	parsedInterval, err := time.ParseDuration(rebindInterval)
	if err != nil {
		return fmt.Errorf("invalid CQCSRV_REBIND_INTERVAL: %w", err)
	}
	c.RebindInterval = parsedInterval

	rebindTimeout := getEnv("CQCSRV_REBIND_TIMEOUT", "2500ms")
	parsedTimeout, err := time.ParseDuration(rebindTimeout)
	if err != nil {
		return fmt.Errorf("invalid CQCSRV_REBIND_TIMEOUT: %w", err)
	}
	c.RebindTimeout = parsedTimeout

	c.AdminBindingTemplate = getEnv("CQCSRV_ADMIN_BINDING", "/CQC/CQCServer/%(h)/CoreAdmin")
	c.AdminListenAddr = getEnv("CQCSRV_ADMIN_ADDR", ":13501")
	c.AdminAuthToken = getEnv("CQCSRV_ADMIN_TOKEN", "")
	c.AdminRateLimitRPS = getIntEnv("CQCSRV_ADMIN_RATE_RPS", 10)
	c.AdminRateLimitBurst = getIntEnv("CQCSRV_ADMIN_RATE_BURST", 20)

	c.InstallSourceImage = getEnv("CQCSRV_INSTALL_SOURCE", "")
	c.InstallTargetPath = getEnv("CQCSRV_INSTALL_TARGET", "")
	c.InstallBackupPath = getEnv("CQCSRV_INSTALL_BACKUP", "")
	c.InstallHistoryDSN = getEnv("CQCSRV_HISTORY_DSN", "")

	return nil
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
