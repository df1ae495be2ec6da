package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// The stations source URL lives in the hardware config so the management
// UI can repoint a deployed appliance at a different content feed without
// touching the stations file it fetches.

// ReadSourceURL returns the configured stations source URL, or "" when the
// file or the field is absent.
func ReadSourceURL(path string) (string, error) {
	tree, err := Load(path)
	if err != nil {
		return "", err
	}
	stations, _ := get(tree, "stations")
	url, _ := get(stations, "source_url")
	s, _ := url.(string)
	return s, nil
}

// WriteSourceURL persists a new stations source URL into the hardware
// config file. This is a read-modify-write merge over the existing tree:
// every other key is preserved. Like the state store it takes no lock and
// does no atomic replace, so a concurrent writer can cause a lost update;
// the management endpoint is the only expected writer.
func WriteSourceURL(path, url string) error {
	tree, err := Load(path)
	if err != nil {
		return err
	}
	cfg, ok := asMapping(tree)
	if !ok {
		return fmt.Errorf("hardware config in %s is not a mapping", path)
	}

	stations, ok := asMapping(cfg["stations"])
	if !ok {
		stations = map[any]any{}
	}
	stations["source_url"] = url
	cfg["stations"] = stations

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal hardware config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write hardware config '%s': %w", path, err)
	}
	return nil
}
