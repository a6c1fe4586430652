package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete service configuration, read from config.yaml with
// MEMEVERSE_-prefixed environment overrides (MEMEVERSE_IMGFLIP_USERNAME
// overrides imgflip.username, and so on).
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Imgflip ImgflipConfig `mapstructure:"imgflip"`
	Imgbb   ImgbbConfig   `mapstructure:"imgbb"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig selects and parameterizes the preference store backend.
type StorageConfig struct {
	// Type is one of "memory", "filesystem", "sqlite", "s3", "redis".
	Type           string `mapstructure:"type"`
	BasePath       string `mapstructure:"base_path"`
	DataSourceName string `mapstructure:"data_source_name"`
	S3Bucket       string `mapstructure:"s3_bucket"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
}

// ImgflipConfig holds the meme catalog API endpoint and the credentials
// needed by the caption endpoint.
type ImgflipConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ImgbbConfig holds the image host endpoint, its API key and the fallback
// URL returned when an upload fails.
type ImgbbConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Key            string `mapstructure:"key"`
	PlaceholderURL string `mapstructure:"placeholder_url"`
}

// Load reads config.yaml from the working directory. A missing file is
// fine; defaults plus environment overrides apply.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MEMEVERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":3003")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.base_path", "./data")
	v.SetDefault("storage.data_source_name", "memeverse.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")

	v.SetDefault("imgflip.base_url", "https://api.imgflip.com")

	v.SetDefault("imgbb.base_url", "https://api.imgbb.com/1/upload")
	v.SetDefault("imgbb.placeholder_url", "https://images.unsplash.com/photo-1531259683007-016a7b628fc3?ixlib=rb-1.2.1&auto=format&fit=crop&w=800&q=80")
}

func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "memory", "filesystem", "sqlite", "s3", "redis":
	default:
		return fmt.Errorf("storage.type must be one of memory, filesystem, sqlite, s3, redis; got %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "s3" && cfg.Storage.S3Bucket == "" {
		return fmt.Errorf("storage.s3_bucket is required for s3 storage")
	}
	return nil
}
