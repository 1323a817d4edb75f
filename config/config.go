// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the server runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment maps an ENV value, long forms included, to an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Upstream services
	RxNavBaseURL     string
	OpenFDABaseURL   string
	OpenFDAAPIKey    string
	UpstreamTimeout  time.Duration // http.Client timeout for a single upstream call
	StageTimeout     time.Duration // upper bound for one pipeline stage, retries included
	StageMaxRetries  int
	RxNavRateLimit   int // requests per second
	OpenFDARateLimit int // requests per second

	// Result cache
	CacheSize int
	CacheTTL  time.Duration

	// Fallback usage table
	FallbackUsesFile string
	FallbackUsesURL  string
	WarmupEnabled    bool
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		RxNavBaseURL:     strings.TrimRight(getEnvWithDefault("RXNAV_BASE_URL", "https://rxnav.nlm.nih.gov/REST"), "/"),
		OpenFDABaseURL:   strings.TrimRight(getEnvWithDefault("OPENFDA_BASE_URL", "https://api.fda.gov"), "/"),
		OpenFDAAPIKey:    os.Getenv("OPENFDA_API_KEY"),
		UpstreamTimeout:  getDurationEnvWithDefault("UPSTREAM_TIMEOUT", 10*time.Second),
		StageTimeout:     getDurationEnvWithDefault("STAGE_TIMEOUT", 8*time.Second),
		StageMaxRetries:  getIntEnvWithDefault("STAGE_MAX_RETRIES", 0),
		RxNavRateLimit:   getIntEnvWithDefault("RXNAV_RATE_LIMIT", 20), // NLM asks for at most 20 req/s
		OpenFDARateLimit: getIntEnvWithDefault("OPENFDA_RATE_LIMIT", 4),

		CacheSize: getIntEnvWithDefault("CACHE_SIZE", 512),
		CacheTTL:  getDurationEnvWithDefault("CACHE_TTL", time.Hour),

		FallbackUsesFile: os.Getenv("FALLBACK_USES_FILE"),
		FallbackUsesURL:  os.Getenv("FALLBACK_USES_URL"),
		WarmupEnabled:    getBoolEnvWithDefault("WARMUP_ENABLED", false),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateBaseURL(cfg.RxNavBaseURL); err != nil {
		return fmt.Errorf("invalid RXNAV_BASE_URL: %w", err)
	}

	if err := validateBaseURL(cfg.OpenFDABaseURL); err != nil {
		return fmt.Errorf("invalid OPENFDA_BASE_URL: %w", err)
	}

	if cfg.FallbackUsesURL != "" {
		if err := validateBaseURL(cfg.FallbackUsesURL); err != nil {
			return fmt.Errorf("invalid FALLBACK_USES_URL: %w", err)
		}
	}

	if err := validateTimeouts(cfg.UpstreamTimeout, cfg.StageTimeout); err != nil {
		return err
	}

	if cfg.StageMaxRetries < 0 || cfg.StageMaxRetries > 5 {
		return fmt.Errorf("invalid STAGE_MAX_RETRIES: must be between 0 and 5, got: %d", cfg.StageMaxRetries)
	}

	if cfg.RxNavRateLimit <= 0 {
		return fmt.Errorf("invalid RXNAV_RATE_LIMIT: must be positive, got: %d", cfg.RxNavRateLimit)
	}

	if cfg.OpenFDARateLimit <= 0 {
		return fmt.Errorf("invalid OPENFDA_RATE_LIMIT: must be positive, got: %d", cfg.OpenFDARateLimit)
	}

	if cfg.CacheSize < 0 {
		return fmt.Errorf("invalid CACHE_SIZE: must not be negative, got: %d", cfg.CacheSize)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Public addresses are rejected, the API sits behind a reverse proxy
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTest:
		return nil
	case "":
		return fmt.Errorf("ENV cannot be empty")
	}

	return fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateBaseURL checks that an upstream URL is absolute http(s)
func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("URL is malformed: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host, got: %s", raw)
	}

	return nil
}

// validateTimeouts validates UPSTREAM_TIMEOUT and STAGE_TIMEOUT
func validateTimeouts(upstream, stage time.Duration) error {
	if upstream <= 0 {
		return fmt.Errorf("invalid UPSTREAM_TIMEOUT: must be positive, got: %s", upstream)
	}

	if stage <= 0 {
		return fmt.Errorf("invalid STAGE_TIMEOUT: must be positive, got: %s", stage)
	}

	if stage > 2*time.Minute {
		return fmt.Errorf("invalid STAGE_TIMEOUT: too large (max 2m), got: %s", stage)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("750ms", "5s")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"RXNAV_BASE_URL",
		"OPENFDA_BASE_URL",
		"OPENFDA_API_KEY",
		"UPSTREAM_TIMEOUT",
		"STAGE_TIMEOUT",
		"STAGE_MAX_RETRIES",
		"RXNAV_RATE_LIMIT",
		"OPENFDA_RATE_LIMIT",
		"CACHE_SIZE",
		"CACHE_TTL",
		"FALLBACK_USES_FILE",
		"FALLBACK_USES_URL",
		"WARMUP_ENABLED",
	}
}
