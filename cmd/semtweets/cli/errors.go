package cli

import "errors"

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// SilentError marks an error that was already printed to the user.
type SilentError struct {
	err error
}

// NewSilentError wraps err so Run does not print it a second time.
func NewSilentError(err error) *SilentError {
	return &SilentError{err: err}
}

func (e *SilentError) Error() string { return e.err.Error() }

func (e *SilentError) Unwrap() error { return e.err }

// IsSilentError reports whether err, or anything it wraps, is a SilentError.
func IsSilentError(err error) bool {
	var se *SilentError
	return errors.As(err, &se)
}
