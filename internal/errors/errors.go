// Package errors provides the structured error taxonomy used across shipset.
// Every failure that leaves a component carries a Kind so callers can branch
// on it, plus enough context (path, package, command) to localize the fault.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind represents the type of failure that occurred.
type Kind int

const (
	// InvalidChangeset covers malformed front matter, unknown packages and bad level tokens.
	InvalidChangeset Kind = iota
	// InvalidConfig covers undecodable or semantically invalid configuration.
	InvalidConfig
	// InvalidChangelog covers a missing header or version section.
	InvalidChangelog
	// NotFound is returned when a file or directory does not exist.
	NotFound
	// ParseError is returned when a manifest cannot be decoded.
	ParseError
	// InvalidVersion is returned for unparsable semantic versions.
	InvalidVersion
	// InvalidPrereleaseTag is returned when a prerelease bump is requested with an empty tag.
	InvalidPrereleaseTag
	// CommandFailed is returned when a publish-related command exits non-zero.
	CommandFailed
	// IO wraps underlying filesystem failures.
	IO
	// Git wraps repository access failures.
	Git
	// HostingAPI wraps failures talking to the hosting provider.
	HostingAPI
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case InvalidChangeset:
		return "Invalid Changeset"
	case InvalidConfig:
		return "Invalid Config"
	case InvalidChangelog:
		return "Invalid Changelog"
	case NotFound:
		return "Not Found"
	case ParseError:
		return "Parse Error"
	case InvalidVersion:
		return "Invalid Version"
	case InvalidPrereleaseTag:
		return "Invalid Prerelease Tag"
	case CommandFailed:
		return "Command Failed"
	case IO:
		return "IO Error"
	case Git:
		return "Git Error"
	case HostingAPI:
		return "Hosting API Error"
	default:
		return "Error"
	}
}

// Error is a structured error with kind, context and remediation guidance.
type Error struct {
	// Kind is the type of error.
	Kind Kind
	// Path is the file or directory involved, if any.
	Path string
	// Package is the package name involved, if any.
	Package string
	// Reason is a human-readable description of what went wrong.
	Reason string
	// Command is the command line that failed (CommandFailed only).
	Command string
	// ExitStatus is the exit status of the failed command (CommandFailed only).
	ExitStatus int
	// Err is the underlying cause.
	Err error
	// Remediation is a list of actionable steps to resolve the error.
	Remediation []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	switch e.Kind {
	case InvalidChangeset:
		fmt.Fprintf(&sb, "invalid changeset %s", e.Path)
	case InvalidConfig:
		sb.WriteString("invalid config")
		if e.Path != "" {
			fmt.Fprintf(&sb, " %s", e.Path)
		}
	case InvalidChangelog:
		fmt.Fprintf(&sb, "invalid changelog %s", e.Path)
	case NotFound:
		fmt.Fprintf(&sb, "file or directory not found: %s", e.Path)
	case ParseError:
		fmt.Fprintf(&sb, "failed to parse %s", e.Path)
	case InvalidVersion:
		sb.WriteString("invalid version")
	case InvalidPrereleaseTag:
		sb.WriteString("invalid prerelease tag")
	case CommandFailed:
		fmt.Fprintf(&sb, "command %q exited with status %d", e.Command, e.ExitStatus)
	case IO:
		sb.WriteString("io error")
		if e.Path != "" {
			fmt.Fprintf(&sb, " on %s", e.Path)
		}
	case Git:
		sb.WriteString("git error")
	case HostingAPI:
		sb.WriteString("hosting api error")
	default:
		sb.WriteString("error")
	}
	if e.Package != "" {
		fmt.Fprintf(&sb, " (package %s)", e.Package)
	}
	if e.Reason != "" {
		fmt.Fprintf(&sb, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithPackage returns a copy of the error annotated with a package name.
func (e *Error) WithPackage(name string) *Error {
	cp := *e
	cp.Package = name
	return &cp
}

// As attempts to convert an error chain to an *Error.
// Returns nil if no *Error is present.
func As(err error) *Error {
	var target *Error
	if stderrors.As(err, &target) {
		return target
	}
	return nil
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) (Kind, bool) {
	if e := As(err); e != nil {
		return e.Kind, true
	}
	return 0, false
}

// IsKind checks whether an error chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// WithPackage annotates err with a package name when it is an *Error,
// otherwise returns it unchanged.
func WithPackage(err error, name string) error {
	if err == nil {
		return nil
	}
	var target *Error
	if stderrors.As(err, &target) && target.Package == "" {
		return target.WithPackage(name)
	}
	return err
}
