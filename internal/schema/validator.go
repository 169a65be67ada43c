package schema

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator checks normalized events against the canonical schema.
// Validation failures are a diagnostic signal, never a reason to abort
// ingestion; callers log and tag, they do not drop the event.
type Validator struct {
	validate  *validator.Validate
	maxFuture time.Duration
}

// ValidatorConfig holds configuration for the validator.
type ValidatorConfig struct {
	MaxFuture time.Duration
}

// DefaultValidatorConfig returns the default validator configuration.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxFuture: 5 * time.Minute,
	}
}

// NewValidator creates a new Validator with default configuration.
func NewValidator() *Validator {
	return NewValidatorWithConfig(DefaultValidatorConfig())
}

// NewValidatorWithConfig creates a new Validator with the specified configuration.
func NewValidatorWithConfig(cfg ValidatorConfig) *Validator {
	return &Validator{
		validate:  validator.New(),
		maxFuture: cfg.MaxFuture,
	}
}

// Validate validates a normalized event. Returns an error describing the
// first violation found.
func (v *Validator) Validate(event *NormalizedEvent) error {
	if err := v.validate.Struct(event); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if event.ReceivedAt.IsZero() {
		return fmt.Errorf("received_at is required")
	}

	now := time.Now().UTC()
	if event.ReceivedAt.After(now.Add(v.maxFuture)) {
		return fmt.Errorf("received_at in future: %v (max future: %v)", event.ReceivedAt, v.maxFuture)
	}

	return nil
}
