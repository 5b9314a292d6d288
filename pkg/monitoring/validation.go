package monitoring

import (
	"strings"

	"github.com/core-tools/hsu-probe/pkg/errors"
)

// ValidateReadinessOptions validates readiness polling options
func ValidateReadinessOptions(options ReadinessOptions) error {
	if err := validatePath(options.Path); err != nil {
		return err
	}

	if options.Timeout <= 0 {
		return errors.NewValidationError("readiness timeout must be positive", nil)
	}

	if options.Interval <= 0 {
		return errors.NewValidationError("readiness interval must be positive", nil)
	}

	if options.AttemptTimeout <= 0 {
		return errors.NewValidationError("readiness attempt timeout must be positive", nil)
	}

	if options.AttemptTimeout >= options.Timeout {
		return errors.NewValidationError("readiness attempt timeout must be less than readiness timeout", nil)
	}

	return nil
}

// ValidateHandshakeOptions validates stream handshake options
func ValidateHandshakeOptions(options HandshakeOptions) error {
	if err := validatePath(options.Path); err != nil {
		return err
	}

	if strings.TrimSpace(options.MediaType) == "" {
		return errors.NewValidationError("stream media type is required", nil)
	}

	if options.Timeout <= 0 {
		return errors.NewValidationError("handshake timeout must be positive", nil)
	}

	return nil
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return errors.NewValidationError("path must start with '/': "+path, nil)
	}
	return nil
}
