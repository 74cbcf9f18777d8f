// Package errs defines the error kinds raised by the release pipeline.
// Every kind carries a message and an optional cause and is matched with
// errors.As at the call site.
package errs

import "fmt"

// GitErrorKind discriminates the failure modes of the repository port.
type GitErrorKind string

const (
	GitNotFound  GitErrorKind = "NotFound"
	GitAmbiguous GitErrorKind = "Ambiguous"
	GitIO        GitErrorKind = "IO"
	GitAuth      GitErrorKind = "Auth"
	GitProtocol  GitErrorKind = "Protocol"
	GitDirty     GitErrorKind = "Dirty"
	GitDetached  GitErrorKind = "Detached"
)

// ReleaseErrorKind discriminates release-level failures.
type ReleaseErrorKind string

const (
	ReleaseNoMatchingReleaseType ReleaseErrorKind = "NoMatchingReleaseType"
	ReleaseServiceUnknown        ReleaseErrorKind = "ServiceUnknown"
	ReleaseUpstreamFailure       ReleaseErrorKind = "UpstreamFailure"
)

// DataAccessError signals a failure reading or writing configuration or
// state files.
type DataAccessError struct {
	Message string
	Cause   error
}

func (e *DataAccessError) Error() string {
	return format("data access", e.Message, e.Cause)
}

func (e *DataAccessError) Unwrap() error { return e.Cause }

// NewDataAccessError builds a DataAccessError with a formatted message.
func NewDataAccessError(cause error, msg string, args ...any) *DataAccessError {
	return &DataAccessError{Message: fmt.Sprintf(msg, args...), Cause: cause}
}

// IllegalPropertyError signals a configuration value that is missing or
// malformed after layer resolution.
type IllegalPropertyError struct {
	Message string
	Cause   error
}

func (e *IllegalPropertyError) Error() string {
	return format("illegal property", e.Message, e.Cause)
}

func (e *IllegalPropertyError) Unwrap() error { return e.Cause }

// NewIllegalPropertyError builds an IllegalPropertyError with a formatted message.
func NewIllegalPropertyError(cause error, msg string, args ...any) *IllegalPropertyError {
	return &IllegalPropertyError{Message: fmt.Sprintf(msg, args...), Cause: cause}
}

// GitError signals a failure of the repository port.
type GitError struct {
	Kind    GitErrorKind
	Message string
	Cause   error
}

func (e *GitError) Error() string {
	return format("git "+string(e.Kind), e.Message, e.Cause)
}

func (e *GitError) Unwrap() error { return e.Cause }

// NewGitError builds a GitError of the given kind with a formatted message.
func NewGitError(kind GitErrorKind, cause error, msg string, args ...any) *GitError {
	return &GitError{Kind: kind, Message: fmt.Sprintf(msg, args...), Cause: cause}
}

// MalformedVersionError signals a version string rejected by the active
// versioning scheme.
type MalformedVersionError struct {
	Version string
	Scheme  string
	Cause   error
}

func (e *MalformedVersionError) Error() string {
	return format("malformed version", fmt.Sprintf("%q does not parse under the %s scheme", e.Version, e.Scheme), e.Cause)
}

func (e *MalformedVersionError) Unwrap() error { return e.Cause }

// ReleaseError signals a failure in the release process itself.
type ReleaseError struct {
	Kind    ReleaseErrorKind
	Message string
	Cause   error
}

func (e *ReleaseError) Error() string {
	return format("release "+string(e.Kind), e.Message, e.Cause)
}

func (e *ReleaseError) Unwrap() error { return e.Cause }

// NewReleaseError builds a ReleaseError of the given kind with a formatted message.
func NewReleaseError(kind ReleaseErrorKind, cause error, msg string, args ...any) *ReleaseError {
	return &ReleaseError{Kind: kind, Message: fmt.Sprintf(msg, args...), Cause: cause}
}

// SecurityError signals a credential that could not be acquired, as opposed
// to a credential rejected on use.
type SecurityError struct {
	Message string
	Cause   error
}

func (e *SecurityError) Error() string {
	return format("security", e.Message, e.Cause)
}

func (e *SecurityError) Unwrap() error { return e.Cause }

func format(prefix, message string, cause error) string {
	if cause == nil {
		return fmt.Sprintf("%s: %s", prefix, message)
	}

	return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
}
