// Package blob stores media content as write-once files on the local
// filesystem. Content is never rewritten after Save returns, which is what
// makes concurrent range reads safe without locking.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDir is used when NewStore receives an empty directory.
const DefaultDir = "uploads"

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Save streams r into a new uniquely named file and returns the location
// key plus the number of bytes written. The file is created exclusively;
// a partial write is removed before the error is returned.
func (s *Store) Save(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	location := fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitizeName(name))
	path := filepath.Join(s.dir, location)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create content file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write content: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("close content file: %w", err)
	}

	return location, size, nil
}

// Open returns a seekable read handle for the stored content. The caller
// owns the handle.
func (s *Store) Open(location string) (io.ReadSeekCloser, error) {
	return os.Open(s.path(location))
}

// Remove deletes stored content. Only used to clean up a failed ingest;
// successfully created assets are never removed.
func (s *Store) Remove(location string) error {
	return os.Remove(s.path(location))
}

func (s *Store) path(location string) string {
	// location keys never escape the content dir
	return filepath.Join(s.dir, filepath.Base(location))
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "content"
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
