// Package github resolves the tip commit of a branch through the GitHub
// GraphQL API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Khan/genqlient/graphql"
	"github.com/picklr-io/switcher/internal/credential"
	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/logging"
	"github.com/picklr-io/switcher/internal/provider"
	"golang.org/x/oauth2"
)

const DefaultUserAgent = "switcher/dev"

type Config struct {
	Endpoint  string
	UserAgent string
	// HTTPClient is the base transport; the bearer token is layered on top of it.
	HTTPClient *http.Client
}

type Provider struct {
	client graphql.Client
}

// New fetches a token from src and returns a provider authenticated with it.
func New(ctx context.Context, cfg Config, src credential.Source) (*Provider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("github endpoint is empty")
	}

	token, err := src.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain github token: %w", err)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	base = &http.Client{
		Transport: &userAgentTransport{agent: userAgent, next: base.Transport},
		Timeout:   base.Timeout,
	}

	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, base),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	)

	return &Provider{client: graphql.NewClient(cfg.Endpoint, httpClient)}, nil
}

// LatestCommit returns the object id of the commit at the tip of the branch
// named by ref. The branch comes from the path after owner/repo, then from a
// "ref" query parameter, and otherwise is the repository's default branch. A
// "ref" that is already a full commit id is returned without a lookup.
func (p *Provider) LatestCommit(ctx context.Context, ref *flake.Ref) (string, error) {
	cr, err := provider.ParseCommitRef(ref.Path())
	if err != nil {
		return "", err
	}
	if cr.Branch == "" {
		if branch, ok := ref.Query("ref"); ok {
			if isCommitID(branch) {
				logging.Debug("flake is already pinned", "ref", cr.String(), "commit", branch)
				return branch, nil
			}
			cr.Branch = branch
		}
	}

	logging.Debug("querying github", "ref", cr.String())

	if cr.Branch == "" {
		return p.defaultBranchCommit(ctx, cr)
	}
	return p.branchCommit(ctx, cr)
}

func (p *Provider) branchCommit(ctx context.Context, cr provider.CommitRef) (string, error) {
	repo, err := p.query(ctx, "LatestCommit", latestCommitQuery, map[string]any{
		"owner":  cr.Owner,
		"name":   cr.Repo,
		"branch": cr.Branch,
	})
	if err != nil {
		return "", err
	}
	if repo.Ref == nil {
		return "", &provider.MissingFieldError{Field: "ref"}
	}
	return commitOf(repo.Ref)
}

func (p *Provider) defaultBranchCommit(ctx context.Context, cr provider.CommitRef) (string, error) {
	repo, err := p.query(ctx, "LatestCommitDefaultBranch", latestCommitDefaultBranchQuery, map[string]any{
		"owner": cr.Owner,
		"name":  cr.Repo,
	})
	if err != nil {
		return "", err
	}
	if repo.DefaultBranchRef == nil {
		return "", &provider.MissingFieldError{Field: "defaultBranchRef"}
	}
	return commitOf(repo.DefaultBranchRef)
}

func (p *Provider) query(ctx context.Context, opName, query string, vars map[string]any) (*repository, error) {
	var data *commitResponse
	resp := &graphql.Response{Data: &data}

	err := p.client.MakeRequest(ctx, &graphql.Request{
		OpName:    opName,
		Query:     query,
		Variables: vars,
	}, resp)
	if err != nil {
		return nil, fmt.Errorf("github query %s failed: %w", opName, err)
	}

	if data == nil {
		return nil, &provider.MissingFieldError{Field: "data"}
	}
	if data.Repository == nil {
		return nil, &provider.MissingFieldError{Field: "repository"}
	}
	return data.Repository, nil
}

// isCommitID reports whether s is a full 40 character hex object id.
func isCommitID(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func commitOf(r *ref) (string, error) {
	if r.Target == nil {
		return "", &provider.MissingFieldError{Field: "target"}
	}
	if r.Target.Typename != "Commit" {
		return "", &provider.NotACommitError{Variant: r.Target.Typename}
	}
	if r.Target.Oid == "" {
		return "", &provider.MissingFieldError{Field: "oid"}
	}
	return r.Target.Oid, nil
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return next.RoundTrip(req)
}
