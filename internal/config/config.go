package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/codevault-labs/postgen/pkg/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logger     logger.Config    `yaml:"logger"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

// GenerationConfig configures the external text and image generation services.
type GenerationConfig struct {
	// Text generation via an OpenAI-compatible endpoint.
	TextBaseURL string `yaml:"text_base_url"`
	TextAPIKey  string `yaml:"text_api_key"`
	TextModel   string `yaml:"text_model"`

	// Image generation via a task-based REST API.
	ImageBaseURL      string `yaml:"image_base_url"`
	ImageAPIKey       string `yaml:"image_api_key"`
	ImagePollInterval string `yaml:"image_poll_interval"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

type ExtractorConfig struct {
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
}

type CleanupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SweepInterval string `yaml:"sweep_interval"`
	Retention     string `yaml:"retention"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5380
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Generation.TextModel == "" {
		cfg.Generation.TextModel = "meta-llama/Llama-3.1-8B-Instruct"
	}
	if cfg.Generation.ImagePollInterval == "" {
		cfg.Generation.ImagePollInterval = "5s"
	}
	if cfg.Extractor.Timeout == "" {
		cfg.Extractor.Timeout = "30s"
	}
	if cfg.Extractor.UserAgent == "" {
		cfg.Extractor.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if cfg.Cleanup.SweepInterval == "" {
		cfg.Cleanup.SweepInterval = "1h"
	}
	if cfg.Cleanup.Retention == "" {
		cfg.Cleanup.Retention = "48h"
	}

	return cfg, nil
}
