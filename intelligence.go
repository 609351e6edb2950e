package phototag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// AnalysisStatus tells how much of the pipeline contributed to an Analysis.
type AnalysisStatus string

const (
	// StatusOK means every model step produced real output.
	StatusOK AnalysisStatus = "ok"
	// StatusDegraded means a model was unavailable and its step used defaults.
	StatusDegraded AnalysisStatus = "degraded"
	// StatusFallback means the pipeline failed and FallbackAnalysis was returned.
	StatusFallback AnalysisStatus = "fallback"
)

// Analysis is the final output of the intelligence pipeline for one photo.
type Analysis struct {
	Category   string     `json:"category"`
	Tags       []string   `json:"tags"`
	Metadata   Metadata   `json:"metadata"`
	Confidence Confidence `json:"confidence"`

	Status  AnalysisStatus `json:"-"`
	Reasons []string       `json:"-"`
}

// FallbackAnalysis is the safe result returned when the pipeline fails.
func FallbackAnalysis() Analysis {
	return Analysis{
		Category: "other",
		Tags:     []string{"unclassified"},
		Metadata: Metadata{
			Lighting: "unknown",
			Mood:     "neutral",
			Composition: Composition{
				Techniques:   []string{},
				DepthOfField: DepthMedium,
				HasLayering:  false,
			},
		},
		Confidence: Confidence{},
		Status:     StatusFallback,
	}
}

// Analyzer runs the scene classifier and depth profiler concurrently, adds
// EXIF and landmark tags when the photo carries the metadata, and merges
// everything into one bounded tag list.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer returns an Analyzer with defaults applied to cfg.
func NewAnalyzer(cfg Config) *Analyzer {
	cfg.defaults()
	return &Analyzer{cfg: cfg}
}

// Analyze never fails: any error, panic or timeout yields FallbackAnalysis
// with Status set to StatusFallback. photo may be nil.
func (a *Analyzer) Analyze(ctx context.Context, imagePath string, photo *Photo) Analysis {
	start := time.Now()
	ctx = WithModelImageCache(ctx)

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	type outcome struct {
		analysis Analysis
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				a.panicked("analyze", r)
				out = outcome{err: fmt.Errorf("panic: %v", r)}
			}
			done <- out
		}()
		out.analysis, out.err = a.analyze(ctx, imagePath, photo)
	}()

	var result Analysis
	select {
	case out := <-done:
		if out.err != nil {
			slog.Warn("phototag: analysis failed, using fallback", "path", imagePath, "error", out.err.Error())
			result = FallbackAnalysis()
			result.Reasons = []string{out.err.Error()}
		} else {
			result = out.analysis
		}
	case <-ctx.Done():
		// The model calls may not honour cancellation; the goroutine
		// finishes on its own and its result is dropped.
		slog.Warn("phototag: analysis timed out, using fallback", "path", imagePath, "error", ctx.Err().Error())
		result = FallbackAnalysis()
		result.Reasons = []string{ctx.Err().Error()}
	}

	if a.cfg.OnAnalysis != nil {
		a.cfg.OnAnalysis(AnalysisEvent{
			ImagePath: imagePath,
			Status:    result.Status,
			Reasons:   result.Reasons,
			Tags:      len(result.Tags),
			Duration:  time.Since(start),
		})
	}
	slog.Debug("phototag: analysis complete", "path", imagePath, "status", string(result.Status),
		"category", result.Category, "tags", len(result.Tags), "duration", time.Since(start))
	return result
}

func (a *Analyzer) analyze(ctx context.Context, imagePath string, photo *Photo) (Analysis, error) {
	if a.cfg.Scene == nil || a.cfg.Depth == nil {
		return Analysis{}, errors.New("analyzer: scene and depth analyzers are required")
	}

	var (
		scene Scene
		depth DepthProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer a.recoverStep("scene", &err)
		scene, err = a.cfg.Scene.Classify(gctx, imagePath)
		return err
	})
	g.Go(func() (err error) {
		defer a.recoverStep("depth", &err)
		depth, err = a.cfg.Depth.Profile(gctx, imagePath)
		return err
	})
	if err := g.Wait(); err != nil {
		return Analysis{}, err
	}

	var exifTags []string
	if photo != nil && photo.EXIF.FocalLength != "" {
		exifTags = PrimaryExifTags(InferShootingContext(photo))
	}

	var placeTags []string
	if lat, lng, ok := photo.Position(); ok {
		placeTags = a.placeTags(lat, lng)
	}

	result := Analysis{
		Category: scene.Category,
		Tags: MergeTags(
			[]string{scene.Category, scene.Lighting, scene.Mood},
			scene.Composition,
			scene.Subjects,
			DepthTags(depth),
			exifTags,
			placeTags,
		),
		Metadata: Metadata{
			Lighting: scene.Lighting,
			Mood:     scene.Mood,
			Composition: Composition{
				Techniques:   append([]string{}, scene.Composition...),
				DepthOfField: depth.DepthOfField,
				HasLayering:  depth.HasLayering,
			},
		},
		Confidence: Confidence{
			Category: scene.Confidence["category"],
			Lighting: scene.Confidence["lighting"],
			Mood:     scene.Confidence["mood"],
		},
		Status: StatusOK,
	}

	if scene.Degraded != "" {
		result.Status = StatusDegraded
		result.Reasons = append(result.Reasons, "scene: "+scene.Degraded)
	}
	if depth.Degraded != "" {
		result.Status = StatusDegraded
		result.Reasons = append(result.Reasons, "depth: "+depth.Degraded)
	}
	return result, nil
}

// placeTags resolves landmark tags. A failing lookup contributes nothing.
func (a *Analyzer) placeTags(lat, lng float64) (tags []string) {
	defer func() {
		if r := recover(); r != nil {
			a.panicked("landmarks", r)
			slog.Warn("phototag: landmark lookup failed", "lat", lat, "lng", lng, "panic", r)
			tags = nil
		}
	}()
	return a.cfg.Gazetteer.Tags(lat, lng)
}

func (a *Analyzer) recoverStep(step string, err *error) {
	if r := recover(); r != nil {
		a.panicked(step, r)
		*err = fmt.Errorf("%s: panic: %v", step, r)
	}
}

func (a *Analyzer) panicked(tag string, r any) {
	if a.cfg.OnPanic != nil {
		a.cfg.OnPanic(tag, r)
	}
}

// MergeTags concatenates sources in priority order, drops empty strings and
// repeats (first occurrence wins) and truncates to MaxTags.
func MergeTags(sources ...[]string) []string {
	var all []string
	for _, s := range sources {
		all = append(all, s...)
	}
	tags := dedupeTags(all)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
