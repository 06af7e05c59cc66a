package credential

import "errors"

var (
	ErrCredentialsNotFound = errors.New("credentials file not found")
	ErrInvalidCredentials  = errors.New("invalid credentials file")
	ErrNoIdentity          = errors.New("cannot determine sending identity")
)

// ConfigError is a non-retryable setup problem: a missing or unreadable
// app-credentials file, or no usable sending identity.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Path
}

func (e *ConfigError) Unwrap() error { return e.Err }
