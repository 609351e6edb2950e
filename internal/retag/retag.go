// Package retag re-runs the intelligence pipeline over every stored photo.
package retag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go-phototag"
)

// ErrRunning is returned when a retag is requested while one is in progress.
var ErrRunning = errors.New("retag: already running")

// Analyzer is the subset of *phototag.Analyzer used by the job.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string, photo *phototag.Photo) phototag.Analysis
}

// Photos is the subset of the photo store used by the job.
type Photos interface {
	List() ([]phototag.Photo, error)
	Update(id string, fn func(*phototag.Photo) error) (phototag.Photo, error)
}

// Files resolves a photo src to a local image file.
type Files interface {
	LocalPath(ctx context.Context, src string) (string, func(), error)
}

// Progress is reported once per processed photo.
type Progress struct {
	Stage       string `json:"stage"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

// Summary is the outcome of a finished run.
type Summary struct {
	Total    int `json:"total"`
	Updated  int `json:"updated"`
	Degraded int `json:"degraded"`
	Skipped  int `json:"skipped"`
}

// Job retags the library. Only one run may be active at a time.
type Job struct {
	Analyzer  Analyzer
	Photos    Photos
	Files     Files
	Gazetteer *phototag.Gazetteer
	Workers   int

	mu      sync.Mutex
	running bool
}

// Run processes every photo, calling progress (serialized) after each one.
// Photos whose image is missing are skipped; photos whose analysis falls back
// keep their existing tags.
func (j *Job) Run(ctx context.Context, progress func(Progress)) (Summary, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return Summary{}, ErrRunning
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	photos, err := j.Photos.List()
	if err != nil {
		return Summary{}, fmt.Errorf("retag: list photos: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = Summary{Total: len(photos)}
		current int
	)
	report := func(p phototag.Photo, outcome string) {
		mu.Lock()
		defer mu.Unlock()
		current++
		switch outcome {
		case "updated":
			summary.Updated++
		case "degraded":
			summary.Updated++
			summary.Degraded++
		default:
			summary.Skipped++
		}
		if progress != nil {
			progress(Progress{
				Stage:       "photos",
				Current:     current,
				Total:       len(photos),
				Description: "Processing photo: " + p.Title,
			})
		}
	}

	workers := j.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range photos {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report(p, j.retagOne(gctx, p))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	slog.Info("phototag: retag complete", "total", summary.Total, "updated", summary.Updated,
		"degraded", summary.Degraded, "skipped", summary.Skipped)
	return summary, nil
}

func (j *Job) retagOne(ctx context.Context, p phototag.Photo) string {
	path, release, err := j.Files.LocalPath(ctx, p.Src)
	if err != nil {
		slog.Warn("phototag: retag skipped photo", "id", p.ID, "src", p.Src, "error", err.Error())
		return "skipped"
	}
	defer release()

	a := j.Analyzer.Analyze(ctx, path, &p)
	if a.Status == phototag.StatusFallback {
		slog.Warn("phototag: retag analysis failed", "id", p.ID, "reasons", a.Reasons)
		return "skipped"
	}

	_, err = j.Photos.Update(p.ID, func(stored *phototag.Photo) error {
		stored.ApplyAnalysis(a)
		if j.Gazetteer != nil && stored.Location != "" {
			stored.Tags = phototag.MergeTags(stored.Tags, j.Gazetteer.TagsForName(stored.Location))
		}
		stored.Series = phototag.InferSeries(stored)
		return nil
	})
	if err != nil {
		slog.Warn("phototag: retag save failed", "id", p.ID, "error", err.Error())
		return "skipped"
	}
	if a.Status == phototag.StatusDegraded {
		return "degraded"
	}
	return "updated"
}
