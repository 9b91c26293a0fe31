package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/datadetective/academy/pkg/adapter"
)

// validOutputs are the accepted output modes.
var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if !adapter.IsRegistered(c.Engine.Type) {
		errs = append(errs, &adapter.UnknownAdapterError{Type: c.Engine.Type, Available: adapter.ListAdapters()})
	}
	if c.Engine.QueryTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.query_timeout must not be negative"))
	}
	if c.Drafts.QuietPeriod < 0 {
		errs = append(errs, fmt.Errorf("drafts.quiet_period must not be negative"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative"))
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL))
	}

	valid := false
	for _, o := range validOutputs {
		if c.OutputFormat == o {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(validOutputs, "|"), c.OutputFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
