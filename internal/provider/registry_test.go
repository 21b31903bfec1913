package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	commit string
	err    error
	seen   []string
}

func (p *staticProvider) LatestCommit(_ context.Context, ref *flake.Ref) (string, error) {
	p.seen = append(p.seen, ref.String())
	return p.commit, p.err
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	p := &staticProvider{commit: "abc123"}
	loads := 0
	reg.Register("github", func() (CommitProvider, error) {
		loads++
		return p, nil
	})

	ctx := context.Background()
	commit, err := reg.Resolve(ctx, flake.MustParse("github:o/r"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", commit)

	_, err = reg.Resolve(ctx, flake.MustParse("github:o/r/dev"))
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, []string{"github:o/r", "github:o/r/dev"}, p.seen)
}

func TestRegistry_UnsupportedScheme(t *testing.T) {
	reg := NewRegistry()
	reg.Register("github", func() (CommitProvider, error) { return &staticProvider{}, nil })

	_, err := reg.Resolve(context.Background(), flake.MustParse("sourcehut:~o/r"))
	require.Error(t, err)

	var unsupported *UnsupportedProviderError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "sourcehut", unsupported.Scheme)
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("github", func() (CommitProvider, error) { return nil, errors.New("no token") })

	_, err := reg.Get("github")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load provider github")
	assert.Contains(t, err.Error(), "no token")
}

func TestRegistry_ProviderErrorKeepsType(t *testing.T) {
	reg := NewRegistry()
	reg.Register("github", func() (CommitProvider, error) {
		return &staticProvider{err: &NotACommitError{Variant: "Tag"}}, nil
	})

	_, err := reg.Resolve(context.Background(), flake.MustParse("github:o/r"))
	require.Error(t, err)

	var notCommit *NotACommitError
	require.True(t, errors.As(err, &notCommit))
	assert.Equal(t, "Tag", notCommit.Variant)
}

func TestParseCommitRef(t *testing.T) {
	tests := []struct {
		path     string
		expected CommitRef
		wantErr  bool
	}{
		{path: "owner/repo", expected: CommitRef{Owner: "owner", Repo: "repo"}},
		{path: "owner/repo/a/b", expected: CommitRef{Owner: "owner", Repo: "repo", Branch: "a/b"}},
		{path: "owner/repo/main", expected: CommitRef{Owner: "owner", Repo: "repo", Branch: "main"}},
		{path: "owner/repo/", expected: CommitRef{Owner: "owner", Repo: "repo"}},
		{path: "owner", wantErr: true},
		{path: "", wantErr: true},
		{path: "/repo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ref, err := ParseCommitRef(tt.path)
			if tt.wantErr {
				var invalid *InvalidPathError
				require.True(t, errors.As(err, &invalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ref)
		})
	}
}
