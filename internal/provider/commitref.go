package provider

import "strings"

// CommitRef names a branch of a repository on a hosting provider.
type CommitRef struct {
	Owner string
	Repo  string
	// Branch is empty when the hosting provider's default branch is meant.
	Branch string
}

// ParseCommitRef splits "owner/repo[/branch/parts]". Everything after the
// repository segment is the branch, slashes included.
func ParseCommitRef(path string) (CommitRef, error) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) < 2 {
		return CommitRef{}, &InvalidPathError{Path: path, Reason: "expected at least owner/repo"}
	}
	if segments[0] == "" || segments[1] == "" {
		return CommitRef{}, &InvalidPathError{Path: path, Reason: "owner and repository must not be empty"}
	}

	return CommitRef{
		Owner:  segments[0],
		Repo:   segments[1],
		Branch: strings.Trim(strings.Join(segments[2:], "/"), "/"),
	}, nil
}

func (c CommitRef) String() string {
	if c.Branch == "" {
		return c.Owner + "/" + c.Repo
	}
	return c.Owner + "/" + c.Repo + "/" + c.Branch
}
