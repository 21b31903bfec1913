// Package flake models flake references: URL-shaped identifiers naming a
// source repository, an optional commit pin carried in the query string, and
// an optional build target carried in the fragment.
package flake

import (
	"errors"
	"net/url"
	"strings"
)

// Ref is a parsed flake reference such as "github:owner/repo/branch?ref=abc#target".
//
// A Ref is mutated in place by SetCommitID and SetFragment. Callers that need
// one reference per build target must Clone the pinned base first.
type Ref struct {
	url *url.URL
}

// Parse parses s into a Ref. Anything net/url rejects, or a string without a
// scheme, fails with *InvalidURLError.
func Parse(s string) (*Ref, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, &InvalidURLError{Input: s, Err: err}
	}
	if u.Scheme == "" {
		return nil, &InvalidURLError{Input: s, Err: errors.New("missing scheme")}
	}
	return &Ref{url: u}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) *Ref {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Ref) Scheme() string {
	return r.url.Scheme
}

// Path returns the repository path without a leading slash: "owner/repo/branch"
// for "github:owner/repo/branch", "host-path" for "git+https://host/host-path".
func (r *Ref) Path() string {
	if r.url.Opaque != "" {
		return r.url.Opaque
	}
	return strings.TrimPrefix(r.url.Path, "/")
}

// Fragment returns the build target, if any.
func (r *Ref) Fragment() (string, bool) {
	if r.url.Fragment == "" {
		return "", false
	}
	return r.url.Fragment, true
}

// Query returns the first value of a query parameter.
func (r *Ref) Query(key string) (string, bool) {
	return queryValue(r.url, key)
}

// SetCommitID pins the reference to a commit under its scheme's pin key.
// The receiver is modified and returned for chaining.
func (r *Ref) SetCommitID(id string) (*Ref, error) {
	scheme, ok := LookupScheme(r.url.Scheme)
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: r.url.Scheme}
	}
	r.UpdateOrAppendQuery(scheme.PinKey, id)
	return r, nil
}

// SetFragment overwrites the fragment. It does not check the fragment against
// the pin key; pin first, then set the target.
func (r *Ref) SetFragment(fragment string) {
	r.url.Fragment = fragment
	r.url.RawFragment = ""
}

// UpdateOrAppendQuery sets a single query parameter, see UpdateOrAppend.
func (r *Ref) UpdateOrAppendQuery(key, value string) {
	UpdateOrAppend(r.url, key, value)
}

// Clone returns an independent copy.
func (r *Ref) Clone() *Ref {
	u := *r.url
	return &Ref{url: &u}
}

// WithFragment returns a clone of r carrying the given fragment.
func (r *Ref) WithFragment(fragment string) *Ref {
	c := r.Clone()
	c.SetFragment(fragment)
	return c
}

// URL returns a copy of the underlying URL.
func (r *Ref) URL() *url.URL {
	u := *r.url
	return &u
}

func (r *Ref) String() string {
	if r == nil || r.url == nil {
		return ""
	}
	return r.url.String()
}

func (r *Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}
