package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Backend  BackendConfig  `json:"backend" mapstructure:"backend"`
	Download DownloadConfig `json:"download" mapstructure:"download"`
	Tools    ToolsConfig    `json:"tools" mapstructure:"tools"`
	Network  NetworkConfig  `json:"network" mapstructure:"network"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// BackendConfig contains settings for the metadata/source backend
type BackendConfig struct {
	BaseURL     string `json:"base_url" mapstructure:"base_url"`
	BearerToken string `json:"bearer_token" mapstructure:"bearer_token"`
}

// DownloadConfig contains download-related settings
type DownloadConfig struct {
	OutputDir    string `json:"output_dir" mapstructure:"output_dir"`
	EmbedArtwork bool   `json:"embed_artwork" mapstructure:"embed_artwork"`
	ArtworkSize  int    `json:"artwork_size" mapstructure:"artwork_size"`
}

// ToolsConfig contains paths to external binaries
type ToolsConfig struct {
	YtDlpPath  string `json:"yt_dlp_path" mapstructure:"yt_dlp_path"`
	FFmpegPath string `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`
}

// NetworkConfig contains network-related settings
type NetworkConfig struct {
	Timeout    int `json:"timeout" mapstructure:"timeout"`
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// HistoryConfig contains download history settings
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" mapstructure:"db_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	Output     string `json:"output" mapstructure:"output"`
	FilePath   string `json:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// Load loads configuration from file or creates default
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create with defaults
			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		} else if os.IsNotExist(err) {
			if err := v.WriteConfigAs(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Allow environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("HASOD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Download.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if c.Download.ArtworkSize < 100 || c.Download.ArtworkSize > 5000 {
		return fmt.Errorf("artwork size must be between 100 and 5000 pixels")
	}

	if c.Tools.YtDlpPath == "" {
		return fmt.Errorf("yt-dlp path cannot be empty")
	}

	if c.Tools.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path cannot be empty")
	}

	if c.Network.Timeout < 1 {
		return fmt.Errorf("network timeout must be at least 1 second")
	}

	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history database path cannot be empty when history is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	validOutputs := map[string]bool{"file": true, "console": true, "both": true}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output: %s (must be file, console, or both)", c.Logging.Output)
	}

	if c.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("log max size must be at least 1 MB")
	}

	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("log max backups cannot be negative")
	}

	if c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("log max age cannot be negative")
	}

	return nil
}

// Save saves the configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.Set("backend", c.Backend)
	v.Set("download", c.Download)
	v.Set("tools", c.Tools)
	v.Set("network", c.Network)
	v.Set("history", c.History)
	v.Set("logging", c.Logging)

	return v.WriteConfig()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://localhost:8787")
	v.SetDefault("backend.bearer_token", "")

	v.SetDefault("download.output_dir", getDefaultDownloadDir())
	v.SetDefault("download.embed_artwork", true)
	v.SetDefault("download.artwork_size", 600)

	v.SetDefault("tools.yt_dlp_path", "yt-dlp")
	v.SetDefault("tools.ffmpeg_path", "ffmpeg")

	v.SetDefault("network.timeout", 30)
	v.SetDefault("network.max_retries", 3)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", filepath.Join(GetDataDir(), "data", "history.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "file")
	v.SetDefault("logging.file_path", filepath.Join(GetDataDir(), "logs", "app.log"))
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	return filepath.Join(GetDataDir(), "settings.json")
}

// getDefaultDownloadDir returns the default download directory
func getDefaultDownloadDir() string {
	return filepath.Join(GetDataDir(), "downloads")
}

// ensureConfigDir ensures the configuration directory exists
func ensureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

// Reload reloads the configuration from file
func (c *Config) Reload(configPath string) error {
	newConfig, err := Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	*c = *newConfig
	return nil
}

// GetDataDir returns the application data directory
func GetDataDir() string {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		appData = os.Getenv("HOME")
	}
	return filepath.Join(appData, "Hasod")
}
