package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidName is returned for names that would escape the upload directory.
var ErrInvalidName = errors.New("invalid stored file name")

// UploadDir is the on-disk directory accepted attachments are written to.
// Files are only ever added; nothing is read back, overwritten in place or deleted.
type UploadDir struct {
	path string
}

// NewUploadDir creates dir (including parents) if it is missing.
func NewUploadDir(dir string) (*UploadDir, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &UploadDir{path: dir}, nil
}

// Path returns the directory path.
func (u *UploadDir) Path() string {
	return u.path
}

// FilePath returns where a stored file with name lives.
func (u *UploadDir) FilePath(name string) string {
	return filepath.Join(u.path, name)
}

// Check reports whether the directory still exists and is a directory.
func (u *UploadDir) Check() error {
	info, err := os.Stat(u.path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", u.path)
	}
	return nil
}

// Stage opens a hidden temporary file in the directory. Its bytes become
// visible under name only after Commit, so no partial download is ever
// addressable under the final name.
func (u *UploadDir) Stage(name string) (*StagedFile, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	f, err := os.CreateTemp(u.path, ".incoming-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	return &StagedFile{file: f, final: u.FilePath(name)}, nil
}

// StagedFile is a file being written that has not been committed yet.
type StagedFile struct {
	file  *os.File
	final string
	done  bool
}

// Write implements io.Writer.
func (s *StagedFile) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Commit flushes the staged bytes and renames them to the final name,
// replacing any previous file with that name. It returns the final path.
func (s *StagedFile) Commit() (string, error) {
	if s.done {
		return "", fmt.Errorf("staged file already finished")
	}
	s.done = true

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		os.Remove(s.file.Name())
		return "", fmt.Errorf("sync staged file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.file.Name())
		return "", fmt.Errorf("close staged file: %w", err)
	}
	if err := os.Chmod(s.file.Name(), 0o644); err != nil {
		os.Remove(s.file.Name())
		return "", fmt.Errorf("chmod staged file: %w", err)
	}
	if err := os.Rename(s.file.Name(), s.final); err != nil {
		os.Remove(s.file.Name())
		return "", fmt.Errorf("commit %s: %w", filepath.Base(s.final), err)
	}
	return s.final, nil
}

// Discard removes the staged bytes. It is a no-op after Commit.
func (s *StagedFile) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	s.file.Close()
	if err := os.Remove(s.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
