// Package config loads the phototagd service configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Ollama   OllamaConfig   `json:"ollama"`
	Depth    DepthConfig    `json:"depth"`
	Geocoder GeocoderConfig `json:"geocoder"`
	Analysis AnalysisConfig `json:"analysis"`
	Log      LogConfig      `json:"log"`
}

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// StorageConfig selects where records and image files live. Backend is
// "disk" (default) or "minio".
type StorageConfig struct {
	DataFile  string      `json:"data_file"`
	PhotoDir  string      `json:"photo_dir"`
	URLPrefix string      `json:"url_prefix"`
	Backend   string      `json:"backend"`
	MinIO     MinIOConfig `json:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
	PublicURL string `json:"public_url"`
}

type OllamaConfig struct {
	Endpoint         string `json:"endpoint"`
	SceneModel       string `json:"scene_model"`
	LabelModel       string `json:"label_model"`
	KeepAliveSeconds int    `json:"keep_alive_seconds"`
}

// DepthConfig points at a depth inference server. An empty endpoint
// disables depth estimation; profiles then use the neutral default.
type DepthConfig struct {
	Endpoint       string `json:"endpoint"`
	HealthURL      string `json:"health_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type GeocoderConfig struct {
	Enabled        bool   `json:"enabled"`
	BaseURL        string `json:"base_url"`
	UserAgent      string `json:"user_agent"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type AnalysisConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	RetagWorkers   int `json:"retag_workers"`
}

type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Geocoder: GeocoderConfig{Enabled: true}}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads a JSON config file and fills unset fields with defaults.
// An empty path yields Default().
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config := Config{Geocoder: GeocoderConfig{Enabled: true}}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	config.setDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 50 << 20
	}

	if c.Storage.DataFile == "" {
		c.Storage.DataFile = "data/photos.json"
	}
	if c.Storage.PhotoDir == "" {
		c.Storage.PhotoDir = "public/photos"
	}
	if c.Storage.URLPrefix == "" {
		c.Storage.URLPrefix = "/photos"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "disk"
	}
	if c.Storage.MinIO.Bucket == "" {
		c.Storage.MinIO.Bucket = "photos"
	}

	if c.Ollama.Endpoint == "" {
		c.Ollama.Endpoint = "http://localhost:11434"
	}
	if c.Ollama.SceneModel == "" {
		c.Ollama.SceneModel = "llava:13b"
	}
	if c.Ollama.LabelModel == "" {
		c.Ollama.LabelModel = c.Ollama.SceneModel
	}

	if c.Depth.TimeoutSeconds == 0 {
		c.Depth.TimeoutSeconds = 60
	}

	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "phototagd/1.0 (photography portfolio)"
	}
	if c.Geocoder.TimeoutSeconds == 0 {
		c.Geocoder.TimeoutSeconds = 10
	}

	if c.Analysis.TimeoutSeconds == 0 {
		c.Analysis.TimeoutSeconds = 180
	}
	if c.Analysis.RetagWorkers == 0 {
		c.Analysis.RetagWorkers = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "disk":
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			return errors.New("storage.minio.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Analysis.RetagWorkers < 0 {
		return fmt.Errorf("invalid retag_workers %d", c.Analysis.RetagWorkers)
	}
	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (d DepthConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func (g GeocoderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func (a AnalysisConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (o OllamaConfig) KeepAlive() time.Duration {
	return time.Duration(o.KeepAliveSeconds) * time.Second
}
