package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asad/sasfetch/internal/apperr"
)

// LocalStore writes downloaded blobs as files under a base directory.
// Blob names containing "/" become sub-directories. Directories are created
// on first write, never up front.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a store rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

// BaseDir returns the root directory.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// Path returns the filesystem path for a blob. Names that would land outside
// the base directory are rejected.
func (s *LocalStore) Path(blobName string) (string, error) {
	if blobName == "" {
		return "", apperr.New(apperr.KindValidation, "", "empty blob name")
	}
	rel := filepath.FromSlash(blobName)
	if filepath.IsAbs(rel) || strings.HasPrefix(blobName, "/") {
		return "", apperr.New(apperr.KindValidation, "", "blob name %q is an absolute path", blobName)
	}
	clean := filepath.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperr.New(apperr.KindValidation, "", "blob name %q escapes the output directory", blobName)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Write streams r into the blob's file, replacing any existing file.
// A partially written file is removed when the copy fails.
func (s *LocalStore) Write(ctx context.Context, blobName string, r io.Reader) (string, int64, error) {
	path, err := s.Path(blobName)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", 0, apperr.Wrap(apperr.KindStorage, "create directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, apperr.Wrap(apperr.KindStorage, "create file", err)
	}

	n, copyErr := io.Copy(fileWriter{w: f}, contextReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(path)
		// Anything that is not a disk error came from the blob body.
		var werr *writeError
		if errors.As(copyErr, &werr) {
			return "", n, apperr.Wrap(apperr.KindStorage, "write file", copyErr)
		}
		return "", n, apperr.Wrap(apperr.KindNetwork, "read blob body", copyErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", n, apperr.Wrap(apperr.KindStorage, "close file", closeErr)
	}

	return path, n, nil
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// fileWriter tags disk errors so Write can tell them apart from read errors.
type fileWriter struct {
	w io.Writer
}

func (f fileWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, &writeError{err: err}
	}
	return n, nil
}

type writeError struct {
	err error
}

func (e *writeError) Error() string {
	return fmt.Sprintf("write: %v", e.err)
}

func (e *writeError) Unwrap() error {
	return e.err
}
