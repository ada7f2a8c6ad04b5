// Package errdefs holds the error kinds shared across service and
// transport layers. Handlers map each kind to an HTTP status with
// errors.Is instead of inspecting message text.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks input the caller can fix.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound marks a missing record or expired state.
	ErrNotFound = errors.New("not found")

	// ErrRefreshFailed marks a token refresh the provider rejected or
	// that cannot be attempted, e.g. no refresh token on file.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrDecryptionFailed marks stored ciphertext that no longer
	// decrypts, usually after an encryption key change.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrTimeout marks an external call that ran out of time.
	ErrTimeout = errors.New("timed out")

	// ErrUnavailable marks a required external dependency that is
	// missing or unreachable.
	ErrUnavailable = errors.New("unavailable")
)

// BadRequestf returns an error matching ErrBadRequest via errors.Is.
func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error matching ErrNotFound via errors.Is.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// RefreshFailedf returns an error matching ErrRefreshFailed via errors.Is.
func RefreshFailedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRefreshFailed, fmt.Sprintf(format, args...))
}
