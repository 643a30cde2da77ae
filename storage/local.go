package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/util"
)

// Local stores objects as files under a base directory. Uploads go through
// a temp file and a rename, so a reader never sees a partial object.
type Local struct {
	basePath string
}

// NewLocal creates a Local backend rooted at basePath.
func NewLocal(basePath string) *Local {
	return &Local{basePath: basePath}
}

// Upload implements Storage.
func (s *Local) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("storage: read upload body: %w", err)
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: local upload: %w", err)
	}
	return nil
}

// Download implements Storage.
func (s *Local) Download(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("object", key)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete implements Storage.
func (s *Local) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists implements Storage.
func (s *Local) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// resolve keeps keys inside the base directory.
func (s *Local) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.InvalidInput("key", fmt.Sprintf("invalid object key %q", key))
	}
	return filepath.Join(s.basePath, clean), nil
}

var _ Storage = (*Local)(nil)
