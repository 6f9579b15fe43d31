package internal

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the YAML configuration file inside the data dir.
const ConfigFileName = "config.yaml"

// Config is the client configuration. Everything has a default; a
// missing file is not an error.
type Config struct {
	APIBase        string `yaml:"api_base"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultTimeoutSeconds allows for slow retrieval-augmented answers.
const DefaultTimeoutSeconds = 120

// DefaultDataDir returns the per-user state directory.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ragis"), nil
}

// LoadConfig reads the config file, filling defaults for anything
// missing. An absent file yields the pure defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		APIBase:        DefaultBaseURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &StorageError{Path: path, Op: "decode", Err: err}
	}

	if cfg.APIBase == "" {
		cfg.APIBase = DefaultBaseURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return cfg, nil
}

// SaveConfig writes the config file.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return &StorageError{Path: path, Op: "encode", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
