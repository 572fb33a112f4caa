package errors

import (
	stdErrors "errors"
	"fmt"
)

// Process exit codes, one per failure class.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitAuth    = 3
	ExitStore   = 4
	ExitInput   = 5

	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

// AuthError means no usable catalog token could be obtained. It aborts the whole run.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err as an authentication failure for provider
func NewAuthError(provider string, err error) *AuthError {
	return &AuthError{Provider: provider, Err: err}
}

// IsAuthError checks if err is an AuthError
func IsAuthError(err error) bool {
	var authErr *AuthError
	return stdErrors.As(err, &authErr)
}

// ConfigError reports missing or invalid configuration
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}

// NewConfigError creates a ConfigError for the given key
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}

// StoreError reports that the relational store could not be opened or migrated
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a store failure during op
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError checks if err is a StoreError
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return stdErrors.As(err, &storeErr)
}

// InputError reports an unreadable or malformed intermediate file
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// NewInputError wraps err as an input file failure for path
func NewInputError(path string, err error) *InputError {
	return &InputError{Path: path, Err: err}
}

// ExitCode maps an error returned by a pipeline stage to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		authErr  *AuthError
		cfgErr   *ConfigError
		storeErr *StoreError
		inErr    *InputError
		stopErr  *StopProcessingError
	)
	switch {
	case stdErrors.As(err, &authErr):
		return ExitAuth
	case stdErrors.As(err, &cfgErr):
		return ExitConfig
	case stdErrors.As(err, &storeErr):
		return ExitStore
	case stdErrors.As(err, &inErr):
		return ExitInput
	case stdErrors.As(err, &stopErr):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}
