// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Store     StoreConfig
	Server    ServerConfig
	Search    SearchConfig
	Reconcile ReconcileConfig
	Import    ImportConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig holds database and search index paths.
type StoreConfig struct {
	// BasePath is the directory holding the Badger database and bleve index.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// SearchConfig holds remote metadata search configuration.
type SearchConfig struct {
	// BaseURL is the metadata index API endpoint.
	BaseURL string
	// Timeout bounds a single search call. The pipeline applies its own
	// per-item bound on top of this.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound search calls.
	RequestsPerSecond float64
}

// ReconcileConfig holds reconciliation engine tuning.
type ReconcileConfig struct {
	// ItemTimeout bounds the match search for one candidate (default: 2s).
	ItemTimeout time.Duration
	// AllowRename permits renaming imported files to "{author} - {title}.{ext}".
	AllowRename bool
	// LibraryPath is the directory committed video files live under.
	LibraryPath string
}

// ImportConfig holds dropfolder import configuration.
type ImportConfig struct {
	// WatchPath is a directory watched for new video files. Empty disables the watcher.
	WatchPath string
	// SettleDelay is how long a file must be quiet before it is enqueued.
	SettleDelay time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	storePath := flag.String("store-path", "", "Base path for database and search index")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	searchURL := flag.String("search-url", "", "Metadata search API base URL")
	searchTimeout := flag.String("search-timeout", "", "Metadata search call timeout (default: 10s)")

	itemTimeout := flag.String("item-timeout", "", "Per-candidate match search timeout (default: 2s)")
	allowRename := flag.String("allow-rename", "", "Allow renaming imported files (default: true)")
	libraryPath := flag.String("library-path", "", "Path to the video library")

	watchPath := flag.String("watch-path", "", "Dropfolder to watch for new files (empty disables)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			BasePath: getConfigValue(*storePath, "STORE_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "ReelKeeper Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Search: SearchConfig{
			BaseURL:           getConfigValue(*searchURL, "SEARCH_BASE_URL", ""),
			RequestsPerSecond: getFloatConfigValue("", "SEARCH_RPS", 4),
		},
		Reconcile: ReconcileConfig{
			AllowRename: getBoolConfigValue(*allowRename, "ALLOW_RENAME", true),
			LibraryPath: getConfigValue(*libraryPath, "LIBRARY_PATH", ""),
		},
		Import: ImportConfig{
			WatchPath: getConfigValue(*watchPath, "WATCH_PATH", ""),
		},
	}

	// Parse durations.
	var err error
	if cfg.Search.Timeout, err = parseDurationValue(*searchTimeout, "SEARCH_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.Reconcile.ItemTimeout, err = parseDurationValue(*itemTimeout, "ITEM_TIMEOUT", "2s"); err != nil {
		return nil, err
	}
	if cfg.Import.SettleDelay, err = parseDurationValue("", "WATCH_SETTLE_DELAY", "2s"); err != nil {
		return nil, err
	}
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}
	if err := cfg.expandLibraryPath(); err != nil {
		return nil, fmt.Errorf("invalid library path: %w", err)
	}
	if err := cfg.expandWatchPath(); err != nil {
		return nil, fmt.Errorf("invalid watch path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.BasePath == "" {
		return errors.New("store base path cannot be empty after expansion")
	}

	// LibraryPath and WatchPath can be empty - files can be enqueued via API.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStorePath expands ~ and makes the path absolute, defaulting to ~/ReelKeeper/data.
func (c *Config) expandStorePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ReelKeeper", "data")

	expanded, err := expandPath(c.Store.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.BasePath = expanded
	return nil
}

// expandLibraryPath expands ~ and makes the path absolute.
// If empty, leaves it empty to allow configuration via API.
func (c *Config) expandLibraryPath() error {
	if c.Reconcile.LibraryPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Reconcile.LibraryPath, "")
	if err != nil {
		return err
	}
	c.Reconcile.LibraryPath = expanded
	return nil
}

// expandWatchPath expands ~ and makes the path absolute. Empty disables watching.
func (c *Config) expandWatchPath() error {
	if c.Import.WatchPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Import.WatchPath, "")
	if err != nil {
		return err
	}
	c.Import.WatchPath = expanded
	return nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), s, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
