package phototag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// Depth-of-field boundaries on the standard deviation of a normalized depth map.
const (
	shallowDepthMax  = 0.15
	mediumDepthMax   = 0.30
	layeringDepthMin = 0.25
)

// DepthMap is a per-pixel relative depth estimate, row-major.
type DepthMap struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"depth"`
}

// DepthEstimator abstracts a monocular depth model.
type DepthEstimator interface {
	Estimate(ctx context.Context, imagePath string) (*DepthMap, error)
}

// DepthAnalyzer is the depth step consumed by Analyzer. Like SceneAnalyzer,
// model failures degrade the profile; errors are for unreadable images.
type DepthAnalyzer interface {
	Profile(ctx context.Context, imagePath string) (DepthProfile, error)
}

// DepthStats summarizes a depth map, rounded to 3 decimals.
type DepthStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// DepthProfile is the depth-of-field reading of one image.
type DepthProfile struct {
	DepthOfField DepthOfField `json:"depthOfField"`
	HasLayering  bool         `json:"hasLayering"`
	Variance     float64      `json:"depthVariance"` // stddev, kept under its historical name
	Range        float64      `json:"depthRange"`
	Stats        DepthStats   `json:"stats"`

	// Degraded is non-empty when the profile is the neutral default.
	Degraded string `json:"-"`
}

// DefaultDepthProfile is the neutral profile used when depth is unknown.
func DefaultDepthProfile() DepthProfile {
	return DepthProfile{DepthOfField: DepthMedium}
}

// ClassifyDepthOfField maps a depth standard deviation to a DOF style.
// Bounds are exclusive: 0.15 is medium, 0.30 is deep.
func ClassifyDepthOfField(stdDev float64) DepthOfField {
	switch {
	case stdDev < shallowDepthMax:
		return DepthShallow
	case stdDev < mediumDepthMax:
		return DepthMedium
	default:
		return DepthDeep
	}
}

// HasLayering reports whether a depth spread indicates distinct
// foreground/midground/background planes. The threshold overlaps the
// medium band on purpose.
func HasLayering(stdDev float64) bool {
	return stdDev > layeringDepthMin
}

// ProfileDepth reduces raw depth samples to a DepthProfile with a single
// linear pass for the mean and extremes and a second for the variance.
func ProfileDepth(values []float32) (DepthProfile, error) {
	if len(values) == 0 {
		return DefaultDepthProfile(), errors.New("empty depth map")
	}

	var sum float64
	minV, maxV := float64(values[0]), float64(values[0])
	for _, v := range values {
		f := float64(v)
		sum += f
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
	}
	n := float64(len(values))
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	stdDev := math.Sqrt(sq / n)
	if !isFinite(stdDev) {
		return DefaultDepthProfile(), errors.New("depth map contains non-finite values")
	}

	return DepthProfile{
		DepthOfField: ClassifyDepthOfField(stdDev),
		HasLayering:  HasLayering(stdDev),
		Variance:     round3(stdDev),
		Range:        round3(maxV - minV),
		Stats: DepthStats{
			Mean:   round3(mean),
			StdDev: round3(stdDev),
			Min:    round3(minV),
			Max:    round3(maxV),
		},
	}, nil
}

// DepthProfiler runs a lazily loaded depth model and profiles its output.
type DepthProfiler struct {
	Model *Resource[DepthEstimator]
}

// NewDepthProfiler returns a profiler backed by model.
func NewDepthProfiler(model *Resource[DepthEstimator]) *DepthProfiler {
	return &DepthProfiler{Model: model}
}

// Profile estimates depth for imagePath. Model failures yield
// DefaultDepthProfile with Degraded set.
func (p *DepthProfiler) Profile(ctx context.Context, imagePath string) (DepthProfile, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return DefaultDepthProfile(), fmt.Errorf("depth profiler: %w", err)
	}

	profile, err := p.profile(ctx, imagePath)
	if err != nil {
		slog.Warn("phototag: depth analysis failed", "path", imagePath, "error", err.Error())
		def := DefaultDepthProfile()
		def.Degraded = err.Error()
		return def, nil
	}
	return profile, nil
}

func (p *DepthProfiler) profile(ctx context.Context, imagePath string) (DepthProfile, error) {
	if p.Model == nil {
		return DepthProfile{}, errors.New("no depth model configured")
	}
	est, err := p.Model.Get(ctx)
	if err != nil {
		return DepthProfile{}, fmt.Errorf("load depth model: %w", err)
	}
	dm, err := est.Estimate(ctx, imagePath)
	if err != nil {
		return DepthProfile{}, err
	}
	if dm == nil {
		return DepthProfile{}, errors.New("depth model returned no map")
	}
	return ProfileDepth(dm.Data)
}

// DepthTags turns a profile into tags: "<dof>-dof" always, plus style tags
// for shallow, deep and layered scenes.
func DepthTags(p DepthProfile) []string {
	tags := []string{string(p.DepthOfField) + "-dof"}

	switch p.DepthOfField {
	case DepthShallow:
		tags = append(tags, "bokeh", "subject-isolation")
	case DepthDeep:
		tags = append(tags, "deep-focus", "full-scene")
	}

	if p.HasLayering {
		tags = append(tags, "layered-composition", "depth-planes")
	}
	return tags
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
