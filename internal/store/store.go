// Package store persists photo records as one JSON array on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/anatolykoptev/go-phototag"
)

// ErrNotFound is returned for unknown photo ids.
var ErrNotFound = errors.New("store: photo not found")

// Store is a flat-file photo store. Every operation reads the whole file;
// writes replace it atomically. Newest photos come first.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open bootstraps the data directory and an empty array file if missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
	} else if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// List returns every photo, newest first.
func (s *Store) List() ([]phototag.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns the photo with id.
func (s *Store) Get(id string) (phototag.Photo, error) {
	photos, err := s.List()
	if err != nil {
		return phototag.Photo{}, err
	}
	for _, p := range photos {
		if p.ID == id {
			return p, nil
		}
	}
	return phototag.Photo{}, ErrNotFound
}

// Upsert replaces the photo with the same id in place, or inserts it at the front.
func (s *Store) Upsert(photo phototag.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	photos, err := s.read()
	if err != nil {
		return err
	}
	if i := indexOf(photos, photo.ID); i >= 0 {
		photos[i] = photo
	} else {
		photos = append([]phototag.Photo{photo}, photos...)
	}
	return s.write(photos)
}

// Update applies fn to the stored photo and saves the result.
// If fn returns an error nothing is written.
func (s *Store) Update(id string, fn func(*phototag.Photo) error) (phototag.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photos, err := s.read()
	if err != nil {
		return phototag.Photo{}, err
	}
	i := indexOf(photos, id)
	if i < 0 {
		return phototag.Photo{}, ErrNotFound
	}
	p := photos[i]
	if err := fn(&p); err != nil {
		return phototag.Photo{}, err
	}
	p.ID = id
	photos[i] = p
	if err := s.write(photos); err != nil {
		return phototag.Photo{}, err
	}
	return p, nil
}

// Delete removes the photo and returns the removed record.
func (s *Store) Delete(id string) (phototag.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photos, err := s.read()
	if err != nil {
		return phototag.Photo{}, err
	}
	i := indexOf(photos, id)
	if i < 0 {
		return phototag.Photo{}, ErrNotFound
	}
	removed := photos[i]
	photos = append(photos[:i], photos[i+1:]...)
	if err := s.write(photos); err != nil {
		return phototag.Photo{}, err
	}
	return removed, nil
}

func (s *Store) read() ([]phototag.Photo, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []phototag.Photo{}, nil
		}
		return nil, err
	}
	var photos []phototag.Photo
	if err := json.Unmarshal(data, &photos); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if photos == nil {
		photos = []phototag.Photo{}
	}
	return photos, nil
}

func (s *Store) write(photos []phototag.Photo) error {
	data, err := json.MarshalIndent(photos, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".photos-*.json")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func indexOf(photos []phototag.Photo, id string) int {
	for i, p := range photos {
		if p.ID == id {
			return i
		}
	}
	return -1
}
