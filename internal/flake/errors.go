package flake

import "fmt"

// InvalidURLError reports a string that does not parse as a flake reference.
type InvalidURLError struct {
	Input string
	Err   error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid flake reference %q: %v", e.Input, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

// UnsupportedSchemeError reports a scheme without a known commit pin key.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("pinning %q flake references is not yet supported", e.Scheme)
}
