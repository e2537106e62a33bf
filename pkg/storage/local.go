package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps objects as files below a base directory. The HTTP
// server exposes that directory under BaseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
	// BaseURL is the path the HTTP server mounts BasePath under, e.g. "/media".
	BaseURL string `mapstructure:"base_url"`
}

var _ Storage = (*LocalStorage)(nil)

func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	dir, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// Dir returns the absolute directory objects are kept in.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// resolve maps key to a path inside dir. Keys that climb out of dir are
// rooted at dir instead.
func (s *LocalStorage) resolve(key string) string {
	clean := path.Clean("/" + filepath.ToSlash(key))
	return filepath.Join(s.dir, filepath.FromSlash(clean))
}

// Put writes through a temp file and renames it so readers never see a
// partial object.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(s.resolve(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// List walks the directory named by prefix. A prefix that names no
// directory yields no objects.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	root := s.resolve(prefix)

	var objects []Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return objects, nil
}

// URL ignores expires; local files are served without signing.
func (s *LocalStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if _, err := os.Stat(s.resolve(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("stat %s: %w", key, err)
	}
	return s.baseURL + "/" + strings.TrimPrefix(filepath.ToSlash(key), "/"), nil
}
