// Package filesystem resolves request paths to files under a served root.
// Every lookup is confined to the root: paths are joined, symlinks are
// resolved, and the result must still lie inside the root directory.
// Files are then opened through an os.Root so a symlink swapped in after
// the check cannot escape either.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sagarc03/hearth"
)

const sniffLen = 512

// Resource is a regular file found under the root.
type Resource struct {
	// Name is the slash-separated path relative to the root.
	Name        string
	AbsPath     string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store provides read-only access to files under a root directory.
type Store struct {
	dir  string
	root *os.Root
}

// NewStore opens dir as the served root. The directory is resolved to an
// absolute, symlink-free path first.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}

	return &Store{dir: abs, root: root}, nil
}

// Dir returns the absolute root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the root.
func (s *Store) Close() error {
	return s.root.Close()
}

// Resolve maps a decoded request path to a file. It returns hearth.ErrNotFound
// when nothing exists there or the target is not a regular file, and
// hearth.ErrForbidden when the path resolves outside the root.
func (s *Store) Resolve(reqPath string) (Resource, error) {
	joined := filepath.Join(s.dir, filepath.FromSlash(strings.TrimLeft(reqPath, "/")))

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return Resource{}, fmt.Errorf("%w: %s", hearth.ErrNotFound, reqPath)
		}
		return Resource{}, fmt.Errorf("%w: %s: %w", hearth.ErrNotFound, reqPath, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %s: %w", hearth.ErrNotFound, reqPath, err)
	}
	if !info.Mode().IsRegular() {
		return Resource{}, fmt.Errorf("%w: %s is not a regular file", hearth.ErrNotFound, reqPath)
	}

	rel, ok := s.within(resolved)
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s", hearth.ErrForbidden, reqPath)
	}

	return Resource{
		Name:        filepath.ToSlash(rel),
		AbsPath:     resolved,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: s.detectContentType(rel),
	}, nil
}

// Open opens a resolved resource for reading through the root.
func (s *Store) Open(res Resource) (*os.File, error) {
	f, err := s.root.Open(filepath.FromSlash(res.Name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", hearth.ErrNotFound, res.Name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// ReadAll reads a whole resource into memory.
func (s *Store) ReadAll(res Resource) ([]byte, error) {
	f, err := s.Open(res)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// within reports whether p is the root or lies beneath it, returning the
// path relative to the root.
func (s *Store) within(p string) (string, bool) {
	rel, err := filepath.Rel(s.dir, p)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false
	}
	return rel, true
}

func (s *Store) detectContentType(rel string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(rel)); contentType != "" {
		return contentType
	}

	f, err := s.root.Open(rel)
	if err != nil {
		return "application/octet-stream"
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, head)
	if n == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(head[:n]).String()
}
