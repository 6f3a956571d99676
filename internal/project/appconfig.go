package project

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/piwi3910/BarCut/internal/model"
)

// EnvDBPath overrides the run history database path from the config file.
const EnvDBPath = "BARCUT_DB_PATH"

// DefaultConfigDir returns the default directory for application configuration.
// On all platforms this is ~/.barcut/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".barcut")
}

// DefaultConfigPath returns the default path for the application config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// SaveAppConfig persists an AppConfig to the given path as TOML.
// It creates any missing parent directories automatically.
func SaveAppConfig(path string, config model.AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAppConfig reads an AppConfig from the given path.
// If the file does not exist, it returns DefaultAppConfig with no error.
// Keys missing from the file keep their default values.
func LoadAppConfig(path string) (model.AppConfig, error) {
	config := model.DefaultAppConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return model.AppConfig{}, err
		}
	} else if err := toml.Unmarshal(data, &config); err != nil {
		return model.AppConfig{}, err
	}

	// Ensure RecentJobs is never nil
	if config.RecentJobs == nil {
		config.RecentJobs = []string{}
	}
	return config, nil
}

// ApplyEnvOverrides applies environment overrides to a loaded config.
// It is kept apart from LoadAppConfig so that saving a loaded config never
// persists environment values.
func ApplyEnvOverrides(config *model.AppConfig) {
	if v := os.Getenv(EnvDBPath); v != "" {
		config.DBPath = v
	}
}

// AddRecentJob moves path to the front of the recent jobs list, keeping at
// most max entries.
func AddRecentJob(config *model.AppConfig, path string, max int) {
	recent := []string{path}
	for _, p := range config.RecentJobs {
		if p != path {
			recent = append(recent, p)
		}
	}
	if max > 0 && len(recent) > max {
		recent = recent[:max]
	}
	config.RecentJobs = recent
}
