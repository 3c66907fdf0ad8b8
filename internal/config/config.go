// Package config provides access to the project-local sagify configuration.
// A project is sagify-enabled when <project>/sagify/config.json exists and
// carries the image name plus the AWS profile and region to operate with.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sentinel errors for configuration validation
var (
	ErrNotSagifyDir      = errors.New("not a sagify directory")
	ErrImageNameRequired = errors.New("image_name is required")
	ErrProfileRequired   = errors.New("aws_profile is required")
	ErrRegionRequired    = errors.New("aws_region is required")
)

// Config represents the project-local configuration. It is created once by
// the init command and treated as immutable after load.
type Config struct {
	ImageName  string `json:"image_name"`
	AWSProfile string `json:"aws_profile"`
	AWSRegion  string `json:"aws_region"`
}

// Path returns the configuration file path for a project root directory.
func Path(dir string) string {
	return filepath.Join(dir, "sagify", "config.json")
}

// Load reads and validates the configuration under the given project root.
// A missing file is reported as ErrNotSagifyDir so callers can distinguish
// an uninitialized project from a malformed file.
func Load(dir string) (*Config, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotSagifyDir, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.ImageName == "" {
		return ErrImageNameRequired
	}
	if c.AWSProfile == "" {
		return ErrProfileRequired
	}
	if c.AWSRegion == "" {
		return ErrRegionRequired
	}
	return nil
}

// Save writes the configuration to <dir>/sagify/config.json, creating the
// sagify directory if needed.
func (c *Config) Save(dir string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, "sagify"), 0o755); err != nil {
		return fmt.Errorf("failed to create sagify directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(Path(dir), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ImageRef returns the full image reference for a docker tag. An empty tag
// defaults to "latest".
func (c *Config) ImageRef(tag string) string {
	if tag == "" {
		tag = "latest"
	}
	return c.ImageName + ":" + tag
}
