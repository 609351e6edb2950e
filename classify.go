package phototag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

// ErrNoScores is returned by scorers that produced no usable label scores.
var ErrNoScores = errors.New("phototag: scorer returned no scores")

// LabelScore is the zero-shot similarity of an image to one candidate label.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Scorer abstracts a zero-shot image/text model. Implementations return one
// score per label; order does not matter.
type Scorer interface {
	Score(ctx context.Context, imagePath string, labels []string) ([]LabelScore, error)
}

// SceneAnalyzer is the scene-classification step consumed by Analyzer.
// Model failures are reported through Scene.Degraded; the error return is
// reserved for failures outside the model (e.g. the image cannot be read).
type SceneAnalyzer interface {
	Classify(ctx context.Context, imagePath string) (Scene, error)
}

// Scene is the outcome of scoring an image against the five label sets.
type Scene struct {
	Category    string
	Lighting    string
	Mood        string
	Composition []string
	Subjects    []string
	Tags        []string
	Confidence  map[string]float64

	// Degraded is non-empty when the values are defaults because the model failed.
	Degraded string
}

// DefaultScene is the neutral scene used when the model is unavailable.
func DefaultScene() Scene {
	return Scene{
		Category:    "other",
		Lighting:    "unknown",
		Mood:        "neutral",
		Composition: []string{},
		Subjects:    []string{},
		Tags:        []string{"unclassified"},
		Confidence:  map[string]float64{},
	}
}

// SceneClassifier scores images with a lazily loaded zero-shot model.
type SceneClassifier struct {
	Model  *Resource[Scorer]
	Labels LabelSets

	CompositionThreshold float64
	CompositionLimit     int
	SubjectThreshold     float64
	SubjectLimit         int
}

// NewSceneClassifier returns a classifier over DefaultLabelSets with the
// default thresholds.
func NewSceneClassifier(model *Resource[Scorer]) *SceneClassifier {
	return &SceneClassifier{
		Model:                model,
		Labels:               DefaultLabelSets,
		CompositionThreshold: DefaultCompositionThreshold,
		CompositionLimit:     DefaultCompositionLimit,
		SubjectThreshold:     DefaultSubjectThreshold,
		SubjectLimit:         DefaultSubjectLimit,
	}
}

// Classify scores imagePath against every label set. Each set is an
// independent pass. If the model cannot be loaded or any pass fails, the
// whole result is DefaultScene with Degraded set.
func (c *SceneClassifier) Classify(ctx context.Context, imagePath string) (Scene, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return DefaultScene(), fmt.Errorf("scene classifier: %w", err)
	}

	scene, err := c.classify(ctx, imagePath)
	if err != nil {
		slog.Warn("phototag: scene classification failed", "path", imagePath, "error", err.Error())
		def := DefaultScene()
		def.Degraded = err.Error()
		return def, nil
	}
	return scene, nil
}

func (c *SceneClassifier) classify(ctx context.Context, imagePath string) (Scene, error) {
	if c.Model == nil {
		return Scene{}, errors.New("no scene model configured")
	}
	scorer, err := c.Model.Get(ctx)
	if err != nil {
		return Scene{}, fmt.Errorf("load scene model: %w", err)
	}

	scene := Scene{Confidence: make(map[string]float64, 3)}

	top, err := topLabel(ctx, scorer, imagePath, c.Labels.Categories)
	if err != nil {
		return Scene{}, fmt.Errorf("category: %w", err)
	}
	scene.Category = ExtractKeyword(top.Label)
	scene.Confidence["category"] = top.Score

	top, err = topLabel(ctx, scorer, imagePath, c.Labels.Lighting)
	if err != nil {
		return Scene{}, fmt.Errorf("lighting: %w", err)
	}
	scene.Lighting = ExtractKeyword(top.Label)
	scene.Confidence["lighting"] = top.Score

	scene.Composition, err = matchingLabels(ctx, scorer, imagePath, c.Labels.Composition, c.CompositionThreshold, c.CompositionLimit)
	if err != nil {
		return Scene{}, fmt.Errorf("composition: %w", err)
	}

	top, err = topLabel(ctx, scorer, imagePath, c.Labels.Mood)
	if err != nil {
		return Scene{}, fmt.Errorf("mood: %w", err)
	}
	scene.Mood = ExtractKeyword(top.Label)
	scene.Confidence["mood"] = top.Score

	scene.Subjects, err = matchingLabels(ctx, scorer, imagePath, c.Labels.Subjects, c.SubjectThreshold, c.SubjectLimit)
	if err != nil {
		return Scene{}, fmt.Errorf("subjects: %w", err)
	}

	tags := []string{scene.Category, scene.Lighting, scene.Mood}
	tags = append(tags, scene.Composition...)
	tags = append(tags, scene.Subjects...)
	for _, t := range tags {
		if t != "" {
			scene.Tags = append(scene.Tags, t)
		}
	}
	return scene, nil
}

// topLabel returns the best-scoring label of a single-label set.
func topLabel(ctx context.Context, s Scorer, imagePath string, labels []string) (LabelScore, error) {
	scores, err := rankedScores(ctx, s, imagePath, labels)
	if err != nil {
		return LabelScore{}, err
	}
	return scores[0], nil
}

// matchingLabels returns keywords of labels scoring strictly above threshold,
// best first, at most limit of them.
func matchingLabels(ctx context.Context, s Scorer, imagePath string, labels []string, threshold float64, limit int) ([]string, error) {
	scores, err := rankedScores(ctx, s, imagePath, labels)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, sc := range scores {
		if len(out) >= limit {
			break
		}
		if sc.Score > threshold {
			out = append(out, ExtractKeyword(sc.Label))
		}
	}
	return out, nil
}

func rankedScores(ctx context.Context, s Scorer, imagePath string, labels []string) ([]LabelScore, error) {
	if len(labels) == 0 {
		return nil, errors.New("empty label set")
	}
	scores, err := s.Score(ctx, imagePath, labels)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, ErrNoScores
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}
