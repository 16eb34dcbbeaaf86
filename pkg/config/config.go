// Package config provides unified configuration for the xsr client and
// its tools.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (XSR_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the xsr client.
type Config struct {
	Client        ClientConfig        `yaml:"client"`
	Transport     TransportConfig     `yaml:"transport"`
	Registry      RegistryConfig      `yaml:"registry"`
	Journal       JournalConfig       `yaml:"journal"`
	Form          FormConfig          `yaml:"form"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// ClientConfig holds the request defaults.
type ClientConfig struct {
	Name          string            `yaml:"name"`           // label for logs and journal entries
	URL           string            `yaml:"url"`            // endpoint, may also be given per request
	Data          map[string]string `yaml:"data"`           // query parameters added to every request
	CallbackParam string            `yaml:"callback_param"` // default: "callback"
	Timeout       time.Duration     `yaml:"timeout"`        // default: 30s
	Link          string            `yaml:"link"`           // "none", "chain" or "cancel", default: "none"
	IDScheme      string            `yaml:"id_scheme"`      // "random" or "uuid", default: "random"
}

// TransportConfig holds script transport settings.
type TransportConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // default: 2m
	RateLimit    float64       `yaml:"rate_limit"`    // dispatches per second, 0 disables
	RateBurst    int           `yaml:"rate_burst"`    // default: 1
}

// RegistryConfig holds callback registry settings.
type RegistryConfig struct {
	AbsorbTTL   time.Duration `yaml:"absorb_ttl"`   // default: 10m
	MaxAttempts int           `yaml:"max_attempts"` // default: 8
}

// JournalConfig holds outcome journal settings.
type JournalConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory" or "postgres", default: "none"
	MaxSize  int            `yaml:"max_size"` // for memory journal, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 4
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// FormConfig describes the fields validated before a send. Fields maps a
// data key to its rule annotation, e.g. "required minLength(2)".
type FormConfig struct {
	Fields   map[string]string `yaml:"fields"`
	Messages map[string]string `yaml:"messages"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Addr    string `yaml:"addr"`    // default: ":9091"
	Path    string `yaml:"path"`    // default: "/metrics"
}

// DebugConfig holds debug logging settings. XSR_DEBUG and XSR_LOG_LEVEL
// take precedence.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma separated, e.g. "request,registry"
	Level      string `yaml:"level"`      // default: "INFO"
	Format     string `yaml:"format"`     // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Client: ClientConfig{
			CallbackParam: "callback",
			Timeout:       30 * time.Second,
			Link:          "none",
			IDScheme:      "random",
		},
		Transport: TransportConfig{
			FetchTimeout: 2 * time.Minute,
			RateBurst:    1,
		},
		Registry: RegistryConfig{
			AbsorbTTL:   10 * time.Minute,
			MaxAttempts: 8,
		},
		Journal: JournalConfig{
			Type:    "none",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns:       4,
				MigrateOnStart: true,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Addr: ":9091",
				Path: "/metrics",
			},
		},
		Debug: DebugConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
