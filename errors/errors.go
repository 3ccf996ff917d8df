// Package errors defines the error vocabulary shared by every component of
// the virtual config volume: a common wrapper interface plus a fixed set of
// sentinel error values, the way github.com/dargueta/disko's errors package
// does it for its much larger driver surface.
package errors

import (
	stderrors "errors"
	"fmt"
)

// VolumeError is the interface implemented by every error this module
// returns. WithMessage attaches context while keeping the sentinel reachable
// through Unwrap, so errors.Is and AsVolumeErrno still find it. WrapError
// keeps the wrapped error in the Unwrap chain instead; the sentinel appears
// only in the message text of its result.
type VolumeError interface {
	error
	WithMessage(message string) VolumeError
	WrapError(err error) VolumeError
	Unwrap() error
}

type customVolumeError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customVolumeError) Error() string {
	return e.message
}

func (e customVolumeError) WithMessage(message string) VolumeError {
	return customVolumeError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customVolumeError) WrapError(err error) VolumeError {
	return customVolumeError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e customVolumeError) Unwrap() error {
	return e.originalError
}

// AsVolumeErrno unwraps err looking for the VolumeErrno sentinel it was
// built from, letting callers branch on error kind (say, to decide whether
// a failed WriteSectors is worth surfacing to the host as a retryable I/O
// error versus a programming mistake) without resorting to string
// matching on Error().
func AsVolumeErrno(err error) (VolumeErrno, bool) {
	var errno VolumeErrno
	if stderrors.As(err, &errno) {
		return errno, true
	}
	return "", false
}
