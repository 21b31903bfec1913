package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.yaml")
	mgr := NewManager(path)
	ctx := context.Background()

	h, err := mgr.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.HistoryVersion, h.Version)
	assert.Empty(t, h.Deployments)

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.Deployments = append(h.Deployments, &ir.Deployment{
		ID:         "d1",
		Command:    "switch",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Host:       "nixos1",
		User:       "alice",
		Flake:      flake.MustParse("github:o/r"),
		Commit:     "abc123",
		Buildables: []string{"github:o/r?ref=abc123#homeConfigurations.alice@nixos1.activationPackage"},
		Steps: []*ir.StepResult{
			{Name: ir.StepBuild, Status: ir.StatusCompleted, Duration: 80 * time.Second},
		},
		Status: ir.DeploymentSucceeded,
	})
	require.NoError(t, mgr.Write(ctx, h))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "commit: abc123")
	assert.Contains(t, string(content), "flake: github:o/r")

	back, err := mgr.Read(ctx)
	require.NoError(t, err)
	require.Len(t, back.Deployments, 1)
	d := back.Deployments[0]
	assert.Equal(t, "d1", d.ID)
	require.NotNil(t, d.Flake)
	assert.Equal(t, "github:o/r", d.Flake.String())
	assert.True(t, started.Equal(d.StartedAt))
	assert.Equal(t, 80*time.Second, d.Steps[0].Duration)
	assert.Equal(t, ir.StepBuild, d.Steps[0].Name)
}

func TestManager_Lock(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "history.yaml"))
	ctx := context.Background()

	require.NoError(t, mgr.Lock(ctx))
	assert.ErrorIs(t, mgr.Lock(ctx), ErrLocked)
	require.NoError(t, mgr.Unlock(ctx))
	require.NoError(t, mgr.Lock(ctx))
	require.NoError(t, mgr.Unlock(ctx))
	require.NoError(t, mgr.Unlock(ctx))
}

func TestManager_StaleLockIsTakenOver(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "history.yaml"))
	require.NoError(t, os.WriteFile(mgr.lockPath(), []byte("pid=1\n"), 0644))
	old := time.Now().Add(-2 * StaleLockAge)
	require.NoError(t, os.Chtimes(mgr.lockPath(), old, old))

	assert.NoError(t, mgr.Lock(context.Background()))
}

func TestAppend_TrimsOldest(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "history.yaml"))
	ctx := context.Background()

	h := emptyHistory()
	for i := 0; i < MaxDeployments; i++ {
		h.Deployments = append(h.Deployments, &ir.Deployment{ID: "old"})
	}
	require.NoError(t, mgr.Write(ctx, h))

	require.NoError(t, Append(ctx, mgr, &ir.Deployment{ID: "new"}))

	back, err := mgr.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, back.Deployments, MaxDeployments)
	assert.Equal(t, "old", back.Deployments[0].ID)
	assert.Equal(t, "new", back.Deployments[MaxDeployments-1].ID)
}

func TestDecode(t *testing.T) {
	h, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.HistoryVersion, h.Version)

	_, err = Decode([]byte("version: 99\n"))
	assert.ErrorContains(t, err, "newer than supported")

	_, err = Decode([]byte("deployments: {"))
	assert.Error(t, err)
}
