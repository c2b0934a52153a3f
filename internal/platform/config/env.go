// Package config loads process configuration for the challenge
// binaries. Settings come from WTT_-prefixed environment variables,
// with command-line flags layered on top by each entry point.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from its env-tagged fields.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
