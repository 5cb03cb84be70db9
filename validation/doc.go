// Package validation checks configuration structs and call arguments,
// reporting failures as INVALID_INPUT errors with per-field details.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    Host     string `mapstructure:"host" validate:"required"`
//	    Protocol string `mapstructure:"protocol" validate:"oneof=http https"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Service("service", service).
//	    ResourceID("id", id).
//	    Validate()
package validation
