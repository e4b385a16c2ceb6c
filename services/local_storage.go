package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/homefix/homefix-api/utils"
)

// LocalStorage keeps attachments on disk and serves them through the uploads route
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the directory files are written to
func (l *LocalStorage) Dir() string {
	return l.dir
}

// Path resolves a key to its file, rejecting keys that leave the directory
func (l *LocalStorage) Path(key string) (string, error) {
	if err := utils.ValidateImageKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, key), nil
}

func (l *LocalStorage) Put(ctx context.Context, key string, content []byte, contentType string) error {
	path, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (l *LocalStorage) URL(ctx context.Context, key string) (string, error) {
	return utils.GetImageURL(key), nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
