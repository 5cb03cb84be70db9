// Package config loads program configuration with viper.
//
// LoadConfig merges defaults, a YAML config file, an optional .env file
// (via godotenv) and environment variables into a tagged struct:
//
//	type Config struct {
//	    config.BaseConfig `mapstructure:",squash"`
//	    Logging logger.Config `mapstructure:"logging"`
//	    PMDA    pmda.Config   `mapstructure:"pmda"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("pmdactl", &cfg, config.WithConfigFile(path))
//
// Environment variables use the upper-cased program name as prefix and
// underscores for nesting: PMDACTL_PMDA_HOST overrides pmda.host.
package config
