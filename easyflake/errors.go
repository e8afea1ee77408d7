package easyflake

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel wrapped by every ConfigError, for
// errors.Is() checks that don't need the field-level detail.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError describes which Config field failed validation and why.
//
// Example:
//
//	if _, err := easyflake.New(cfg); err != nil {
//	    var configErr *easyflake.ConfigError
//	    if errors.As(err, &configErr) {
//	        log.Printf("invalid config field %s: %s", configErr.Field, configErr.Reason)
//	    }
//	}
type ConfigError struct {
	Field      string
	Value      string
	Reason     string
	Constraint string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("easyflake: invalid configuration: %s=%s (%s) - %s",
		e.Field, e.Value, e.Reason, e.Constraint)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func newConfigError(field, value, reason, constraint string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason, Constraint: constraint}
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// GetConfigError extracts the *ConfigError from err's chain, if present.
func GetConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}
