package git

import (
	"context"
	"errors"
	"testing"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/provider"
	"github.com/picklr-io/switcher/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_LatestCommit(t *testing.T) {
	tests := []struct {
		name    string
		flake   string
		command string
		output  string
		want    string
	}{
		{
			name:    "head",
			flake:   "git+https://example.com/o/r",
			command: "git ls-remote https://example.com/o/r HEAD",
			output:  "1111\tHEAD\n",
			want:    "1111",
		},
		{
			name:    "branch",
			flake:   "git+https://example.com/o/r?ref=main&dir=sub",
			command: "git ls-remote https://example.com/o/r main",
			output:  "2222\trefs/heads/main\n3333\trefs/heads/main-old\n",
			want:    "2222",
		},
		{
			name:    "annotated tag peels",
			flake:   "git+ssh://git@example.com/o/r?ref=v1",
			command: "git ls-remote ssh://git@example.com/o/r v1",
			output:  "4444\trefs/tags/v1\n5555\trefs/tags/v1^{}\n",
			want:    "5555",
		},
		{
			name:    "file transport",
			flake:   "git+file:///srv/nixos-config",
			command: "git ls-remote file:///srv/nixos-config HEAD",
			output:  "6666\tHEAD",
			want:    "6666",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &system.Fake{Outputs: map[string]string{tt.command: tt.output}}
			commit, err := New(fake).LatestCommit(context.Background(), flake.MustParse(tt.flake))
			require.NoError(t, err)
			assert.Equal(t, tt.want, commit)
		})
	}
}

func TestProvider_UnknownRef(t *testing.T) {
	fake := &system.Fake{Outputs: map[string]string{
		"git ls-remote https://example.com/o/r gone": "",
	}}
	_, err := New(fake).LatestCommit(context.Background(), flake.MustParse("git+https://example.com/o/r?ref=gone"))
	require.Error(t, err)

	var mf *provider.MissingFieldError
	assert.True(t, errors.As(err, &mf))
}

func TestProvider_CommandFailure(t *testing.T) {
	_, err := New(&system.Fake{}).LatestCommit(context.Background(), flake.MustParse("git+https://example.com/o/r"))
	var ce *system.CommandError
	assert.True(t, errors.As(err, &ce))
}
