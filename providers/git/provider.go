// Package git resolves commits for git+<transport> flake references with
// git ls-remote.
package git

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/logging"
	"github.com/picklr-io/switcher/internal/provider"
	"github.com/picklr-io/switcher/internal/system"
)

// Schemes lists the flake schemes this provider serves.
var Schemes = []string{"git+https", "git+http", "git+ssh", "git+file"}

type Provider struct {
	runner system.Runner
}

func New(runner system.Runner) *Provider {
	return &Provider{runner: runner}
}

// LatestCommit returns the commit the "ref" query parameter points at on the
// remote, or the remote HEAD when no ref is given.
func (p *Provider) LatestCommit(ctx context.Context, ref *flake.Ref) (string, error) {
	remote, err := remoteURL(ref)
	if err != nil {
		return "", err
	}

	want := "HEAD"
	if branch, ok := ref.Query("ref"); ok && branch != "" {
		want = branch
	}

	logging.Debug("querying git remote", "remote", remote, "ref", want)
	out, err := p.runner.RunCaptured(ctx, "git", "ls-remote", remote, want)
	if err != nil {
		return "", err
	}
	return parseLsRemote(out, want)
}

func remoteURL(ref *flake.Ref) (string, error) {
	u := ref.URL()
	transport, ok := strings.CutPrefix(u.Scheme, "git+")
	if !ok {
		return "", &provider.UnsupportedProviderError{Scheme: u.Scheme}
	}

	remote := &url.URL{
		Scheme: transport,
		User:   u.User,
		Host:   u.Host,
		Path:   u.Path,
		Opaque: u.Opaque,
	}
	return remote.String(), nil
}

// parseLsRemote picks the line for want out of "<oid>\t<refname>" lines,
// preferring an exact match, then refs/heads/<want>, then refs/tags/<want>.
func parseLsRemote(out, want string) (string, error) {
	found := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		oid, name, ok := strings.Cut(strings.TrimSpace(line), "\t")
		if !ok {
			continue
		}
		found[name] = oid
	}

	for _, candidate := range []string{want, "refs/heads/" + want, "refs/tags/" + want + "^{}", "refs/tags/" + want} {
		if oid, ok := found[candidate]; ok && oid != "" {
			return oid, nil
		}
	}
	return "", fmt.Errorf("remote has no ref %q: %w", want, &provider.MissingFieldError{Field: want})
}
