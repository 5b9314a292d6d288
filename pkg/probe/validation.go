package probe

import (
	"github.com/core-tools/hsu-probe/pkg/errors"
	"github.com/core-tools/hsu-probe/pkg/monitoring"
	"github.com/core-tools/hsu-probe/pkg/process"
)

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *ProbeConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := process.ValidateExecutionConfig(config.Server); err != nil {
		return errors.NewValidationError("invalid server configuration", err)
	}

	if config.Target.Host == "" {
		return errors.NewValidationError("target host is required", nil)
	}
	if config.Target.Port <= 0 || config.Target.Port > 65535 {
		return errors.NewValidationError("target port must be between 1 and 65535", nil)
	}

	if err := monitoring.ValidateReadinessOptions(config.Readiness); err != nil {
		return errors.NewValidationError("invalid readiness configuration", err)
	}

	if err := monitoring.ValidateHandshakeOptions(config.Stream); err != nil {
		return errors.NewValidationError("invalid stream configuration", err)
	}

	if config.Teardown.GracePeriod <= 0 {
		return errors.NewValidationError("teardown grace period must be positive", nil)
	}

	return nil
}
