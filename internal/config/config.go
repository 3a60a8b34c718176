package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable that overrides the config
// file location.
const EnvConfigPath = "TEXT2IMG_CONFIG"

// DefaultPath is used when EnvConfigPath is unset.
const DefaultPath = "config.yaml"

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	APIKey             string `yaml:"api_key"`
	CollectionName     string `yaml:"collection_name"`
	CaptionPayloadName string `yaml:"caption_payload_name"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
}

// URL renders the REST endpoint of the Qdrant instance.
func (q QdrantConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", q.Host, q.Port)
}

// VectorNames holds the two named vector spaces of the collection.
type VectorNames struct {
	Text  string `yaml:"text_vector_name"`
	Image string `yaml:"img_vector_name"`
}

// Contains reports whether name is one of the configured spaces.
func (v VectorNames) Contains(name string) bool {
	return name == v.Text || name == v.Image
}

// ModelConfig configures the remote multimodal embedding service.
type ModelConfig struct {
	URL         string `yaml:"url"`
	Name        string `yaml:"name"`
	VectorSize  int    `yaml:"vector_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ServerConfig configures the HTTP serving layer.
type ServerConfig struct {
	Port               int `yaml:"port"`
	MaxInflight        int `yaml:"max_inflight"`
	RequestTimeoutSecs int `yaml:"request_timeout_secs"`
}

// RequestTimeout is the per-request budget around embed+search.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// ImporterConfig configures the offline import job.
type ImporterConfig struct {
	DatasetPath     string  `yaml:"dataset_path"`
	FetchRatePerSec float64 `yaml:"fetch_rate_per_sec"`
}

// Config is the root application configuration. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	Qdrant      QdrantConfig   `yaml:"qdrant"`
	VectorNames VectorNames    `yaml:"vector_names"`
	Model       ModelConfig    `yaml:"model"`
	Server      ServerConfig   `yaml:"server"`
	Importer    ImporterConfig `yaml:"importer"`
}

// Load reads and validates a config file. Environment variables
// referenced as $VAR or ${VAR} anywhere in the file are expanded
// before unmarshalling.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault resolves the config path from EnvConfigPath, falling
// back to DefaultPath, and loads it.
func LoadDefault() (*Config, string, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func applyDefaults(cfg *Config) {
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6333
	}
	if cfg.Qdrant.CaptionPayloadName == "" {
		cfg.Qdrant.CaptionPayloadName = "possible_answers"
	}
	if cfg.Qdrant.TimeoutSecs == 0 {
		cfg.Qdrant.TimeoutSecs = 15
	}
	if cfg.VectorNames.Text == "" {
		cfg.VectorNames.Text = "text"
	}
	if cfg.VectorNames.Image == "" {
		cfg.VectorNames.Image = "image"
	}
	if cfg.Model.VectorSize == 0 {
		cfg.Model.VectorSize = 512
	}
	if cfg.Model.TimeoutSecs == 0 {
		cfg.Model.TimeoutSecs = 30
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.MaxInflight == 0 {
		cfg.Server.MaxInflight = 8
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 30
	}
	if cfg.Importer.FetchRatePerSec == 0 {
		cfg.Importer.FetchRatePerSec = 4
	}
}

func (cfg *Config) validate() error {
	if cfg.Qdrant.Host == "" {
		return errors.New("config: qdrant.host is required")
	}
	if cfg.Qdrant.CollectionName == "" {
		return errors.New("config: qdrant.collection_name is required")
	}
	if cfg.Model.URL == "" {
		return errors.New("config: model.url is required")
	}
	if cfg.Model.Name == "" {
		return errors.New("config: model.name is required")
	}
	if cfg.Model.VectorSize <= 0 {
		return errors.New("config: model.vector_size must be positive")
	}
	if cfg.VectorNames.Text == cfg.VectorNames.Image {
		return errors.New("config: vector_names must be two distinct names")
	}
	return nil
}
