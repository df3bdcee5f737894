package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad/sasfetch/internal/apperr"
)

func TestLocalStore_WriteCreatesDirectories(t *testing.T) {
	base := filepath.Join(t.TempDir(), "downloads")
	s := NewLocalStore(base)

	_, err := os.Stat(base)
	require.True(t, os.IsNotExist(err), "directory should not exist before the first write")

	path, n, err := s.Write(context.Background(), "2026/02/report.csv", strings.NewReader("a,b,c\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2026", "02", "report.csv"), path)
	assert.Equal(t, int64(6), n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n", string(content))
}

func TestLocalStore_WriteOverwrites(t *testing.T) {
	s := NewLocalStore(t.TempDir())

	_, _, err := s.Write(context.Background(), "report.csv", strings.NewReader("old content that is longer"))
	require.NoError(t, err)
	path, _, err := s.Write(context.Background(), "report.csv", strings.NewReader("new"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestLocalStore_PathRejectsEscapes(t *testing.T) {
	s := NewLocalStore(t.TempDir())

	for _, name := range []string{"", "../secret", "a/../../b", "/etc/passwd", ".."} {
		_, err := s.Path(name)
		require.Error(t, err, name)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%q: %v", name, err)
	}

	path, err := s.Path("a/../b.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir(), "b.csv"), path)
}

type failingReader struct {
	data []byte
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestLocalStore_WriteRemovesPartialFile(t *testing.T) {
	s := NewLocalStore(t.TempDir())

	_, _, err := s.Write(context.Background(), "partial.csv", &failingReader{data: []byte("half")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNetwork), "got %v", err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	path, _ := s.Path("partial.csv")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStore_WriteHonoursCancellation(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Write(ctx, "cancelled.csv", strings.NewReader("data"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_WriteStorageError(t *testing.T) {
	base := t.TempDir()
	// A regular file where a directory is needed.
	require.NoError(t, os.WriteFile(filepath.Join(base, "2026"), []byte("x"), 0644))
	s := NewLocalStore(base)

	_, _, err := s.Write(context.Background(), "2026/report.csv", strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorage), "got %v", err)
}
