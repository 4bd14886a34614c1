package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
)

// Constructors for each error kind.
// These keep messages and remediation hints consistent across packages.

// NewInvalidChangeset creates an error for a malformed changeset file.
func NewInvalidChangeset(path, reason string) *Error {
	return &Error{
		Kind:   InvalidChangeset,
		Path:   path,
		Reason: reason,
		Remediation: []string{
			"Changesets must be front matter, a '---' line, then a summary",
			"Front matter maps package names to major, minor or patch (optionally 'level:tag')",
		},
	}
}

// NewInvalidConfig creates an error for invalid configuration.
func NewInvalidConfig(path, reason string) *Error {
	return &Error{
		Kind:   InvalidConfig,
		Path:   path,
		Reason: reason,
		Remediation: []string{
			"Check the config file in your changeset directory",
			"Run 'shipset init --force' to regenerate it",
		},
	}
}

// NewInvalidChangelog creates an error for a changelog document that cannot be used.
func NewInvalidChangelog(path, reason string) *Error {
	return &Error{
		Kind:   InvalidChangelog,
		Path:   path,
		Reason: reason,
		Remediation: []string{
			"Changelog files must start with a '# Changelog' line",
		},
	}
}

// NewNotFound creates an error for a missing file or directory.
func NewNotFound(path string) *Error {
	return &Error{Kind: NotFound, Path: path}
}

// NewParseError creates an error for a manifest that cannot be decoded.
func NewParseError(path string, err error) *Error {
	return &Error{Kind: ParseError, Path: path, Err: err}
}

// NewParseErrorReason creates a parse error with a textual reason instead of a cause.
func NewParseErrorReason(path, reason string) *Error {
	return &Error{Kind: ParseError, Path: path, Reason: reason}
}

// NewInvalidVersion creates an error for an unparsable version string.
func NewInvalidVersion(version string, err error) *Error {
	return &Error{Kind: InvalidVersion, Reason: fmt.Sprintf("%q", version), Err: err}
}

// NewInvalidPrereleaseTag creates an error for an unusable prerelease tag.
func NewInvalidPrereleaseTag(tag, reason string) *Error {
	return &Error{
		Kind:   InvalidPrereleaseTag,
		Reason: fmt.Sprintf("%q %s", tag, reason),
		Remediation: []string{
			"Set prerelease_tag for the package, e.g. prerelease_tag = \"beta\"",
		},
	}
}

// NewCommandFailed creates an error for a command that exited non-zero.
func NewCommandFailed(command string, status int, err error) *Error {
	return &Error{Kind: CommandFailed, Command: command, ExitStatus: status, Err: err}
}

// NewIO wraps a filesystem failure. Missing files are reported as NotFound.
func NewIO(path string, err error) *Error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return NewNotFound(path)
	}
	return &Error{Kind: IO, Path: path, Err: err}
}

// NewGit wraps a repository failure.
func NewGit(reason string, err error) *Error {
	return &Error{Kind: Git, Reason: reason, Err: err}
}

// NewHostingAPI wraps a hosting provider failure.
func NewHostingAPI(reason string, err error) *Error {
	return &Error{
		Kind:   HostingAPI,
		Reason: reason,
		Err:    err,
		Remediation: []string{
			"Check that GITHUB_TOKEN is set and has access to the repository",
		},
	}
}

// MissingChangesetDir creates an error when no changeset directory can be located.
func MissingChangesetDir(start string) *Error {
	return &Error{
		Kind:   NotFound,
		Path:   start,
		Reason: "no .changesets or .changes directory found",
		Remediation: []string{
			"Run 'shipset init' at the repository root",
			"Or point SHIPSET_CHANGESET_PATH at an existing changeset directory",
		},
	}
}
