package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores objects under a directory and serves them below URLPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// URLPrefix is where the HTTP server mounts Local.Handler.
const URLPrefix = "/files/"

// NewLocal creates a local store rooted at dir.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Local{dir: dir, urlPrefix: URLPrefix}, nil
}

func (l *Local) Upload(ctx context.Context, r io.Reader, obj Object) (string, error) {
	dest, err := l.resolve(obj.Key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("writing object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing object: %w", err)
	}
	return l.urlPrefix + obj.Key, nil
}

func (l *Local) Owns(url string) bool {
	key, ok := strings.CutPrefix(url, l.urlPrefix)
	return ok && isTicketKey(key)
}

func (l *Local) Delete(ctx context.Context, url string) error {
	if !l.Owns(url) {
		return nil
	}
	dest, err := l.resolve(strings.TrimPrefix(url, l.urlPrefix))
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// Handler serves stored files. Mount it at URLPrefix.
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(l.urlPrefix, http.FileServer(http.Dir(l.dir)))
}

// resolve maps a key onto the filesystem, refusing keys that escape dir.
func (l *Local) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}
