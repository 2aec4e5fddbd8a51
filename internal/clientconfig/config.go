// Package clientconfig loads the terminal client's YAML settings file.
package clientconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds terminal client settings
type Config struct {
	APIURL   string `yaml:"api_url"`
	Token    string `yaml:"token"`
	Database string `yaml:"database"` // local snapshot database path
	Session  string `yaml:"session"`  // snapshot slot name
}

// Default returns the settings used when no file exists
func Default() Config {
	return Config{
		APIURL:   "http://localhost:8080",
		Database: filepath.Join(configDir(), "onboard.db"),
		Session:  "default",
	}
}

// DefaultPath is where the settings file lives unless overridden
func DefaultPath() string {
	return filepath.Join(configDir(), "onboard.yaml")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "saga")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
// The file holds a bearer token, so it is private to the user.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the settings needed to talk to the API
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL))
	}
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if strings.TrimSpace(c.Session) == "" {
		errs = append(errs, errors.New("session is required"))
	}
	return errors.Join(errs...)
}
