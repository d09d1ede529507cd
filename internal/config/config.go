package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Tracker
	MaxWatching    int           // Cap on continue-watching entries (default: 30)
	MaxHistory     int           // Cap on watch-history entries (default: 100)
	ListCacheTTL   time.Duration // How long a cached list read stays fresh (default: 30s)
	SessionMaxIdle time.Duration // Idle time before an episode session is collected (default: 24h)

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/gowatcharr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("MAX_WATCHING", 30)
	viper.SetDefault("MAX_HISTORY", 100)
	viper.SetDefault("LIST_CACHE_TTL_SECONDS", 30)
	viper.SetDefault("SESSION_MAX_IDLE_HOURS", 24)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "gowatcharr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	databaseFile := viper.GetString("DATABASE_FILE")
	if databaseFile == "" {
		databaseFile = filepath.Join(configDir, "gowatcharr.db")
	}

	config := &Config{
		MaxWatching:    viper.GetInt("MAX_WATCHING"),
		MaxHistory:     viper.GetInt("MAX_HISTORY"),
		ListCacheTTL:   time.Duration(viper.GetInt("LIST_CACHE_TTL_SECONDS")) * time.Second,
		SessionMaxIdle: time.Duration(viper.GetInt("SESSION_MAX_IDLE_HOURS")) * time.Hour,

		ServerPort:   viper.GetString("SERVER_PORT"),
		DatabaseFile: databaseFile,
		LogLevel:     viper.GetString("LOG_LEVEL"),
	}

	// Validate caps
	if config.MaxWatching <= 0 {
		return nil, fmt.Errorf("MAX_WATCHING must be positive, got %d", config.MaxWatching)
	}
	if config.MaxHistory <= 0 {
		return nil, fmt.Errorf("MAX_HISTORY must be positive, got %d", config.MaxHistory)
	}

	return config, nil
}
