// Package filestore stores uploaded task files by name under a single root
// directory. The backing filesystem is an afero.Fs so tests can run against
// memory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/platform/logger"
	"github.com/spf13/afero"
)

// ErrFileNotFound is returned by Open when no file exists under the name.
// It matches fs.ErrNotExist.
var ErrFileNotFound = fmt.Errorf("file not found: %w", fs.ErrNotExist)

// ErrInvalidName is returned when a name would escape the storage root.
var ErrInvalidName = errors.New("invalid file name")

// Store is a name-addressed blob store rooted at a directory.
// Writing an existing name replaces its content.
type Store struct {
	fs     afero.Fs
	logger *slog.Logger
}

// New creates a Store rooted at dir on fsys, creating the directory if needed.
func New(fsys afero.Fs, dir string, logger *slog.Logger) (*Store, error) {
	if fsys == nil {
		panic("fsys cannot be nil") // ALLOW-PANIC: constructor precondition
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Store{
		fs:     afero.NewBasePathFs(fsys, dir),
		logger: logger.With(slog.String("component", "filestore")),
	}, nil
}

func cleanName(name string) (string, error) {
	clean := domain.SanitizeFileName(name)
	if clean == "" || clean != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return path.Join("/", clean), nil
}

// Save writes r to name and returns the number of bytes written.
// Content is written to a temporary file first and renamed into place, so a
// reader never observes a partially written file.
func (s *Store) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	target, err := cleanName(name)
	if err != nil {
		return 0, err
	}

	tmp, err := afero.TempFile(s.fs, "/", ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = s.fs.Remove(tmpName)
		log.Error("failed to write file",
			slog.String("name", name),
			slog.String("error", copyErr.Error()))
		return 0, fmt.Errorf("failed to write file: %w", copyErr)
	}

	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}

	log.Debug("file saved", slog.String("name", name), slog.Int64("size", n))
	return n, nil
}

// Open returns a reader for name. The caller must close it.
// Returns ErrFileNotFound if nothing is stored under name.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}
