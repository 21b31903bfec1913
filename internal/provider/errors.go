package provider

import "fmt"

// UnsupportedProviderError reports a flake scheme no provider is registered for.
type UnsupportedProviderError struct {
	Scheme string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("there is no support for %q flake references yet", e.Scheme)
}

// InvalidPathError reports a repository path that does not name owner and repository.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid repository path %q: %s", e.Path, e.Reason)
}

// MissingFieldError reports a provider response lacking an expected field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("provider response is missing %q", e.Field)
}

// NotACommitError reports a ref whose target is not a commit, e.g. an annotated tag.
type NotACommitError struct {
	Variant string
}

func (e *NotACommitError) Error() string {
	return fmt.Sprintf("ref target is a %s, not a Commit", e.Variant)
}
