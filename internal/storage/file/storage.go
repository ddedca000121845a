package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/mcoot/aiventure/internal/model"
	"github.com/mcoot/aiventure/internal/storage"
)

// Storage keeps the credential record in a single file readable only by the user
type Storage struct {
	path string
}

// New creates a file-backed store at path. The parent directory is created on first save.
func New(path string) *Storage {
	return &Storage{path: path}
}

// Ensure Storage implements the interface
var _ storage.CredentialStore = (*Storage)(nil)

// Path returns the backing file path
func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.ErrCredentialNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	// Write then rename so a crash never leaves a truncated record
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Storage) Delete(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
