// Package assets stores uploaded image files on disk or in MinIO.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store persists image files under a flat key namespace.
type Store interface {
	// Put writes data under key and returns the public URL (the record's src).
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object a src URL points at. Missing objects are not an error.
	Delete(ctx context.Context, src string) error
	// LocalPath returns a readable file for src. release must be called when done.
	LocalPath(ctx context.Context, src string) (path string, release func(), err error)
}

// DiskStore writes files into Dir and serves them under URLPrefix.
type DiskStore struct {
	Dir       string
	URLPrefix string // e.g. "/photos"
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &DiskStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *DiskStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	name, err := safeKey(key)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return s.URLPrefix + "/" + name, nil
}

func (s *DiskStore) Delete(_ context.Context, src string) error {
	name, err := safeKey(path.Base(src))
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (s *DiskStore) LocalPath(_ context.Context, src string) (string, func(), error) {
	name, err := safeKey(path.Base(src))
	if err != nil {
		return "", nil, err
	}
	p := filepath.Join(s.Dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", nil, err
	}
	return p, func() {}, nil
}

// safeKey rejects keys that would escape the store directory.
func safeKey(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid asset key %q", key)
	}
	return key, nil
}

// FileName builds a storage key from an id and the client's file name,
// replacing whitespace with hyphens and dropping path components.
func FileName(id, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.Join(strings.Fields(base), "-")
	if base == "" || base == "." || base == "/" {
		base = "photo.jpg"
	}
	return id + "-" + base
}
