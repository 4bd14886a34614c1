package cli

import (
	"errors"
	"fmt"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// Exit codes for the shipset CLI
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitFailure is used for everything without a more specific code
	ExitFailure = 1

	// ExitInvalidInput indicates a malformed changeset, changelog, version or prerelease tag
	ExitInvalidInput = 2

	// ExitInvalidConfig indicates the configuration is missing or invalid
	ExitInvalidConfig = 3

	// ExitCommandFailed indicates a prepublish, publish or post-version command failed
	ExitCommandFailed = 4
)

// ExitError carries an exit code for an error already reported to the user.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError returns an ExitError with code.
func NewExitError(code int) error {
	return &ExitError{Code: code}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	kind, ok := shiperrors.KindOf(err)
	if !ok {
		return ExitFailure
	}
	switch kind {
	case shiperrors.InvalidConfig, shiperrors.NotFound:
		return ExitInvalidConfig
	case shiperrors.InvalidChangeset, shiperrors.InvalidChangelog,
		shiperrors.InvalidVersion, shiperrors.InvalidPrereleaseTag:
		return ExitInvalidInput
	case shiperrors.CommandFailed:
		return ExitCommandFailed
	default:
		return ExitFailure
	}
}
