package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config holds the application configuration.
type Config struct {
	Port         int    `yaml:"port"`
	ModelsDir    string `yaml:"models_dir"`
	DatabasePath string `yaml:"database_path"`
	LogFile      string `yaml:"log_file"`
	Version      string `yaml:"-"`
}

// LoadFile reads an optional YAML config file. A missing file is not
// an error; flags layered on top take priority.
func LoadFile(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings are user preferences persisted between runs.
type Settings struct {
	ModelsDir string `json:"modelsDir,omitempty"`
	LastModel string `json:"lastModel,omitempty"`
}

// settingsPath returns the settings file location under the user
// config directory.
func settingsPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "house-price-predictor", "settings.json"), nil
}

// LoadSettings reads persisted settings, returning zero settings when
// none exist yet.
func LoadSettings() (Settings, error) {
	var settings Settings

	path, err := settingsPath()
	if err != nil {
		return settings, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SaveSettings persists settings, creating the config directory if
// needed.
func SaveSettings(settings Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
