package phototag

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader initializes an expensive resource such as a model handle.
type Loader[T any] func(ctx context.Context) (T, error)

// Resource is a lazily initialized, process-lifetime value. The first Get
// triggers the load; concurrent callers share the in-flight load. A failed
// load is not cached, so the next Get tries again.
type Resource[T any] struct {
	name  string
	load  Loader[T]
	group singleflight.Group

	mu    sync.RWMutex
	ready bool
	value T
}

// NewResource wraps load. name is used for logging only.
func NewResource[T any](name string, load Loader[T]) *Resource[T] {
	return &Resource[T]{name: name, load: load}
}

// Get returns the loaded value, loading it on first use.
func (r *Resource[T]) Get(ctx context.Context) (T, error) {
	r.mu.RLock()
	if r.ready {
		v := r.value
		r.mu.RUnlock()
		return v, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(r.name, func() (any, error) {
		// Another flight may have finished between the check above and Do.
		r.mu.RLock()
		if r.ready {
			v := r.value
			r.mu.RUnlock()
			return v, nil
		}
		r.mu.RUnlock()

		slog.Info("phototag: loading model", "resource", r.name)
		v, err := r.load(ctx)
		if err != nil {
			slog.Warn("phototag: model load failed", "resource", r.name, "error", err.Error())
			return v, err
		}

		r.mu.Lock()
		r.value = v
		r.ready = true
		r.mu.Unlock()
		slog.Info("phototag: model loaded", "resource", r.name)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Loaded reports whether the value has been initialized.
func (r *Resource[T]) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}
