package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/pmdakit/errors"
)

// BaseConfig contains the fields every pmdakit program carries.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

var environments = []string{"development", "staging", "production"}

// ApplyDefaults applies default values to base configuration.
func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return errors.InvalidInput("base.name", "base.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return errors.InvalidInput("base.environment",
			fmt.Sprintf("base.environment must be one of %v (got: %s)", environments, c.Environment))
	}
	return nil
}
