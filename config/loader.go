package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadedConfig is everything read from the codex home at startup
type LoadedConfig struct {
	CodexHome   string
	Models      *ModelRegistry
	Credentials *Credentials
}

// LoadAll resolves the codex home and loads the model registry and
// credentials beneath it. An empty codexHome argument means "discover it".
func LoadAll(codexHome string) (*LoadedConfig, error) {
	if codexHome == "" {
		var err error
		codexHome, err = FindCodexHome()
		if err != nil {
			return nil, err
		}
	}

	models, err := LoadModelRegistry(codexHome)
	if err != nil {
		return nil, err
	}

	creds, err := LoadCredentials(codexHome)
	if err != nil {
		return nil, err
	}

	return &LoadedConfig{
		CodexHome:   codexHome,
		Models:      models,
		Credentials: creds,
	}, nil
}

// LoadModelRegistry reads models.jsonc from the codex home, falling back
// to the built-in registry when the file is absent. User entries are
// merged over the built-ins.
func LoadModelRegistry(codexHome string) (*ModelRegistry, error) {
	registry := DefaultModelRegistry()

	path := filepath.Join(codexHome, "models.jsonc")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return registry, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var user ModelRegistry
	if err := json.Unmarshal(StripJSONComments(data), &user); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for name, def := range user.Models {
		registry.Models[name] = def
	}

	return registry, nil
}
