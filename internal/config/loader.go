package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file on top of the defaults. Keys missing from the file keep their default value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint: gosec // User-provided config path is intentional.
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}

		return Config{}, fmt.Errorf("could not read config file: %w", err)
	}

	return Decode(bytes.NewReader(data))
}

// Decode reads a YAML configuration on top of the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}

	return cfg, nil
}
