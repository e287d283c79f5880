package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source is one layer of settings.
type Source interface {
	// Lookup returns the value stored under key and whether it was present.
	Lookup(key string) (string, bool)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(key string) (string, bool)

// Lookup calls f(key).
func (f SourceFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// MapSource serves settings from an in-memory map.
type MapSource map[string]string

// Lookup returns m[key].
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// EnvSource serves settings from the process environment.
func EnvSource() Source {
	return SourceFunc(os.LookupEnv)
}

// DotEnvSource reads one or more .env files. The process environment is not
// modified. Later files override earlier ones, as with godotenv.Overload.
func DotEnvSource(paths ...string) (Source, error) {
	merged := MapSource{}
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

// FileSource reads a flat map of setting keys from a YAML (.yaml, .yml) or
// TOML (.toml) file. Scalar values of any type are converted to strings.
func FileSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("config file %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	out := make(MapSource, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: key %s must be a scalar", path, k)
		case nil:
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

// DiscoverFile finds the settings file using the discovery order:
//  1. Explicit path argument
//  2. MORPHEUS_CONFIG environment variable
//  3. ./morpheus.yaml, ./morpheus.yml or ./morpheus.toml
//
// Returns empty string if no file is found.
func DiscoverFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if envPath := os.Getenv(KeyConfigFile); envPath != "" {
		return envPath
	}
	for _, path := range []string{"morpheus.yaml", "morpheus.yml", "morpheus.toml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
