package cli

import (
	"errors"
	"fmt"

	"mercator-hq/cachescript/pkg/config"
	"mercator-hq/cachescript/pkg/manifest"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError represents an error in a command's configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps err to a process exit code. Configuration problems, in
// either the application config or a manifest, exit with ExitConfig.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var validation config.ValidationError
	var manifestErr *manifest.ConfigurationError
	var depErr *manifest.DependencyError
	switch {
	case errors.As(err, &cfgErr),
		errors.As(err, &validation),
		errors.As(err, &manifestErr),
		errors.As(err, &depErr):
		return ExitConfig
	}
	return ExitFailure
}
