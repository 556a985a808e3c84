package cmd

import (
	"errors"
	"strings"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// Exit codes per the command-surface contract: 0 success, 1 generic error,
// 2 unknown bundle, 3 unreadable project root.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitUnknownBundle  = 2
	ExitUnreadableRoot = 3
)

// exitCodeFor maps a command error to its exit code. Bundle lookups that
// fail a name match return a plain, unwrapped error (internal/bundle never
// needed a sentinel for it), so unknown-bundle detection matches on the
// stable "unknown" wording in that error text rather than a type assertion.
// A CodewellError with ErrCodeNotFound whose message mentions "bundle" is
// treated the same way, for errors that do flow through internal/errors.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, errProjectRootUnreadable) {
		return ExitUnreadableRoot
	}
	if codewellerrors.GetCode(err) == codewellerrors.ErrCodeNotFound && strings.Contains(err.Error(), "bundle") {
		return ExitUnknownBundle
	}
	if strings.Contains(err.Error(), "unknown bundle") || strings.Contains(err.Error(), "unknown smart bundle") {
		return ExitUnknownBundle
	}
	return ExitError
}
