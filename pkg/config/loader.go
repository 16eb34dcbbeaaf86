package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/xsr/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, XSR_CONFIG env, ./xsr.yaml, /etc/xsr/xsr.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. XSR_CONFIG environment variable
// 3. ./xsr.yaml in the current directory
// 4. /etc/xsr/xsr.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("XSR_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"xsr.yaml",
		"/etc/xsr/xsr.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps XSR_* environment variables to config fields.
// Malformed values are reported instead of silently ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("XSR_URL"); v != "" {
		cfg.Client.URL = v
	}
	if v := os.Getenv("XSR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("XSR_TIMEOUT: %w", err)
		}
		cfg.Client.Timeout = d
	}
	if v := os.Getenv("XSR_LINK"); v != "" {
		cfg.Client.Link = v
	}
	if v := os.Getenv("XSR_CALLBACK_PARAM"); v != "" {
		cfg.Client.CallbackParam = v
	}
	if v := os.Getenv("XSR_ID_SCHEME"); v != "" {
		cfg.Client.IDScheme = v
	}
	if v := os.Getenv("XSR_JOURNAL"); v != "" {
		cfg.Journal.Type = v
	}

	// XSR_DATA: JSON object merged into client.data.
	if v := os.Getenv("XSR_DATA"); v != "" {
		data, err := parseDataJSON(v)
		if err != nil {
			return fmt.Errorf("XSR_DATA: %w", err)
		}
		if cfg.Client.Data == nil {
			cfg.Client.Data = make(map[string]string, len(data))
		}
		for k, val := range data {
			cfg.Client.Data[k] = val
		}
	}
	return nil
}

// parseDataJSON parses a JSON object of string values.
func parseDataJSON(jsonStr string) (map[string]string, error) {
	var data map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return nil, fmt.Errorf("parsing data JSON: %w", err)
	}
	return data, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// If the value field is empty and the file field is set, the file is read,
// whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// journal.postgres.dsn_file -> journal.postgres.dsn
	if cfg.Journal.Postgres.DSNFile != "" && cfg.Journal.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Journal.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("journal.postgres.dsn_file: %w", err)
		}
		cfg.Journal.Postgres.DSN = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
