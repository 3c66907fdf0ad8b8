package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for hyperparameter files
var (
	ErrHyperparamsNotFound = errors.New("hyperparams file does not exist")
	ErrHyperparamsFormat   = errors.New("hyperparams file must be .json, .yml or .yaml")
)

// LoadHyperparams reads a flat hyperparameter mapping from a JSON or YAML
// file. Values are kept verbatim; the cloud facade encodes non-string
// values when building the platform request.
func LoadHyperparams(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrHyperparamsNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hyperparams %s: %w", path, err)
	}

	params := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("failed to parse hyperparams %s: %w", path, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("failed to parse hyperparams %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrHyperparamsFormat, path)
	}
	return params, nil
}
