package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LocalImageStore writes post images under a directory served by the API.
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, baseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload directory")
	}
	return &LocalImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalImageStore) path(key string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	return full, nil
}

func (s *LocalImageStore) Put(_ context.Context, key, _ string, body io.Reader, size int64) (string, error) {
	full, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrap(err, "create image directory")
	}

	f, err := os.Create(full)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}
	defer f.Close()

	reader := body
	if size > 0 {
		reader = io.LimitReader(body, size)
	}
	if _, err := io.Copy(f, reader); err != nil {
		_ = os.Remove(full)
		return "", errors.Wrap(err, "write image file")
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalImageStore) Delete(_ context.Context, key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove image file")
	}
	return nil
}

// Dir is the directory images are written to.
func (s *LocalImageStore) Dir() string {
	return s.dir
}
