package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// Save writes cfg to path as TOML or JSON depending on the extension.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		enc := toml.NewEncoder(&buf)
		enc.Indent = ""
		if err := enc.Encode(cfg); err != nil {
			return shiperrors.NewInvalidConfig(path, err.Error())
		}
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return shiperrors.NewInvalidConfig(path, err.Error())
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		return shiperrors.NewInvalidConfig(path, "config can only be saved as .toml or .json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return shiperrors.NewIO(filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return shiperrors.NewIO(path, err)
	}
	cfg.path = path
	return nil
}
