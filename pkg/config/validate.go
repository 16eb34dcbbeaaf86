package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rhuss/xsr/pkg/api"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("client.timeout must not be negative, got %s", c.Client.Timeout))
	}

	if _, err := api.ParseLinkPolicy(c.Client.Link); err != nil {
		errs = append(errs, fmt.Errorf("client.link: %w", err))
	}

	switch c.Client.IDScheme {
	case "random", "uuid":
		// valid
	default:
		errs = append(errs, fmt.Errorf("client.id_scheme must be \"random\" or \"uuid\", got %q", c.Client.IDScheme))
	}

	if c.Transport.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("transport.rate_limit must be >= 0, got %v", c.Transport.RateLimit))
	}
	if c.Transport.RateLimit > 0 && c.Transport.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("transport.rate_burst must be > 0 when rate_limit is set, got %d", c.Transport.RateBurst))
	}

	if c.Registry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("registry.max_attempts must be > 0, got %d", c.Registry.MaxAttempts))
	}
	if c.Registry.AbsorbTTL < 0 {
		errs = append(errs, fmt.Errorf("registry.absorb_ttl must not be negative, got %s", c.Registry.AbsorbTTL))
	}

	// journal.type must be a known value.
	switch c.Journal.Type {
	case "none", "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("journal.type must be \"none\", \"memory\" or \"postgres\", got %q", c.Journal.Type))
	}

	// If journal.type is "postgres", DSN or DSNFile must be set.
	if c.Journal.Type == "postgres" {
		if c.Journal.Postgres.DSN == "" && c.Journal.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("journal.postgres.dsn or journal.postgres.dsn_file is required when journal.type is \"postgres\""))
		}
	}

	switch strings.ToLower(c.Debug.Format) {
	case "", "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("debug.format must be \"text\" or \"json\", got %q", c.Debug.Format))
	}

	return errors.Join(errs...)
}
