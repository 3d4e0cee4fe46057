package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// TMDb (primary catalog source)
	TMDBAPIKey string

	// Watchmode (fallback discovery source, optional)
	WatchmodeAPIKey string

	// Market time zone for "today"/"this week" windows and the midnight
	// refresh (default: Europe/Madrid)
	Timezone string

	// Sync
	SyncBudgetSeconds int // wall-clock budget per sync pass (default: 60)
	RetentionDays     int // days an unavailable item is kept before deletion (default: 30)

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/estrenarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("TIMEZONE", "Europe/Madrid")
	viper.SetDefault("SYNC_BUDGET_SECONDS", 60)
	viper.SetDefault("RETENTION_DAYS", 30)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "estrenarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		TMDBAPIKey:      viper.GetString("TMDB_API_KEY"),
		WatchmodeAPIKey: viper.GetString("WATCHMODE_API_KEY"),

		Timezone: viper.GetString("TIMEZONE"),

		SyncBudgetSeconds: viper.GetInt("SYNC_BUDGET_SECONDS"),
		RetentionDays:     viper.GetInt("RETENTION_DAYS"),

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile: filepath.Join(configDir, "estrenarr.db"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// The sync engine cannot start a pass without catalog credentials;
	// surface this before anything runs so setup problems are obvious.
	if config.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}

	return config, nil
}
