package uploads

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesExpiredBatches(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old-batch")
	fresh := filepath.Join(dir, "fresh-batch")
	require.NoError(t, os.MkdirAll(old, 0o755))
	require.NoError(t, os.MkdirAll(fresh, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(old, "a.txt"), []byte("x"), 0o644))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	s := NewSweeper(dir, 24*time.Hour)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepMissingDir(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "yok"), time.Hour)
	removed, err := s.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(t.TempDir(), time.Hour).Run(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
