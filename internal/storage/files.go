package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrFileMissing = errors.New("stored file not found")

// UploadDir keeps uploaded PDFs on local disk so they can be served under
// /static/uploads.
type UploadDir struct {
	root string
}

func NewUploadDir(root string) (*UploadDir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadDir{root: root}, nil
}

func (u *UploadDir) Root() string { return u.root }

// Save writes data under name, replacing any previous file.
func (u *UploadDir) Save(name string, data []byte) error {
	path, err := u.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save upload %s: %w", name, err)
	}
	return nil
}

func (u *UploadDir) Read(name string) ([]byte, error) {
	path, err := u.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", name, err)
	}
	return b, nil
}

func (u *UploadDir) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	return filepath.Join(u.root, name), nil
}
