package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/florianilch/oauth2grant/internal/grant"
)

// FileStore keeps the grant as a JSON file readable only by its owner.
// Writes use temp file + rename for crash safety.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements GrantStore
var _ GrantStore = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path, creating parent directories
// with 0700 permissions if they don't exist.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, err
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// Load reads the stored grant. Returns error if the file doesn't exist, is
// empty, or has permissions other than 0600.
func (f *FileStore) Load(ctx context.Context) (grant.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(f.filePath)
	if err != nil {
		return nil, err
	}
	if info.Mode().Perm() != 0600 {
		return nil, fmt.Errorf("insecure permissions on %s: %04o (expected 0600)", f.filePath, info.Mode().Perm())
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, err
	}

	attrs, err := decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.filePath, err)
	}
	return attrs, nil
}

// Save atomically replaces the file using temp file + rename.
// The temp file is created with 0600 before any secret is written to it.
func (f *FileStore) Save(ctx context.Context, attrs grant.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := encode(attrs)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(f.filePath), "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if err := tempFile.Chmod(0600); err != nil {
		return err
	}
	if _, err := tempFile.WriteString(doc + "\n"); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	return os.Rename(tempName, f.filePath)
}
