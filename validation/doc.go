// Package validation checks configuration and composition arguments.
//
// Struct tag validation (go-playground/validator) is used for config blocks
// loaded through Viper, while the fluent Validator collects field errors for
// programmatic checks. Both report a single ARGUMENT_INVALID AppError whose
// "fields" detail lists every failing field.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    BufferSize int `mapstructure:"buffer_size" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	err := validation.New().NonNegative("degree", n).Validate()
package validation
