package voxelterrain

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadConfigFile reads path as TOML, decodes it onto DefaultConfig (so a
// file only needs to name the keys it overrides), and runs Validate against
// logger before returning.
func LoadConfigFile(path string, logger Logger) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("voxelterrain: reading config file %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("voxelterrain: parsing config file %s: %w", path, err)
	}
	return cfg.Validate(logger), nil
}

// WriteConfigFile encodes cfg as TOML to path, for a demo CLI's
// "dump the effective configuration" diagnostic.
func WriteConfigFile(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("voxelterrain: encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("voxelterrain: writing config file %s: %w", path, err)
	}
	return nil
}
