// Package errdefs defines the error classes surfaced to the operator.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed indicates a list could not be retrieved (network error,
	// timeout or non-200 response). No firewall state has been touched.
	ErrFetchFailed = errors.New("list download failed")

	// ErrInvalidList indicates a fetched body is empty or looks like an HTML
	// error page instead of a plain-text range list.
	ErrInvalidList = errors.New("downloaded list is not a plain-text range list")

	// ErrInvalidPort indicates a port argument is not an integer in 1-65535.
	ErrInvalidPort = errors.New("invalid port")

	// ErrPrivilegeMissing indicates the process lacks the privilege required
	// to mutate firewall state. Checked before any other action.
	ErrPrivilegeMissing = errors.New("root privilege required")

	// ErrDependencyMissing indicates a required external tool is absent and
	// was not (or could not be) installed.
	ErrDependencyMissing = errors.New("required dependency missing")

	// ErrPartialApply indicates a firewall mutation step failed after earlier
	// steps succeeded. The kernel state is inconsistent until the next
	// apply or flush.
	ErrPartialApply = errors.New("apply interrupted mid-way")
)

// PartialApply tags err with the mutation stage that failed so the operator
// knows the system may be in a partial state.
func PartialApply(stage string, err error) error {
	return fmt.Errorf("stage %q: %w: %w", stage, ErrPartialApply, err)
}
