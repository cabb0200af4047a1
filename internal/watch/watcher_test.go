package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderOf(t *testing.T) {
	root := filepath.Join("data", "in")
	tests := []struct {
		path       string
		wantFolder string
		wantRest   string
		wantOK     bool
	}{
		{filepath.Join(root, "Adbulla"), "Adbulla", "", true},
		{filepath.Join(root, "Adbulla", "PA.pdf"), "Adbulla", "PA.pdf", true},
		{filepath.Join(root, "Adbulla", "sub", "x.pdf"), "Adbulla", "sub/x.pdf", true},
		{root, "", "", false},
		{filepath.Join("data", "other", "x.pdf"), "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, rest, ok := FolderOf(root, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFolder, f)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case name, ok := <-ch:
		require.True(t, ok, "channel closed")
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for folder event")
		return ""
	}
}

func TestFolders_EmitsOnNewPDF(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _, err := Folders(ctx, Config{Root: root, Debounce: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	dir := filepath.Join(root, "Adbulla")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// give the watcher a moment to pick up the new directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PA.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "referral_package.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	assert.Equal(t, "Adbulla", next(t, ch))

	cancel()
	for range ch {
	}
}

func TestFolders_InitialScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "a"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _, err := Folders(ctx, Config{Root: root, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.Equal(t, "a", next(t, ch))
	assert.Equal(t, "b", next(t, ch))
}

func TestFolders_MissingRoot(t *testing.T) {
	_, _, err := Folders(context.Background(), Config{Root: filepath.Join(t.TempDir(), "nope")}, nil)
	assert.Error(t, err)
	_, _, err = Folders(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
