package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage кладет файлы в каталог, который отдает nginx или gin.Static
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	root := cfg.BasePath
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", root, err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

// resolve не дает ключу выйти за пределы root
func (s *LocalStorage) resolve(key string) (string, error) {
	rel := filepath.Clean("/" + key)
	if rel == "/" {
		return "", errors.New("storage: empty key")
	}
	return filepath.Join(s.root, rel), nil
}

// Put пишет во временный файл и переименовывает, чтобы читатель
// не увидел половину фотографии.
func (s *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ string) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *LocalStorage) Remove(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}
