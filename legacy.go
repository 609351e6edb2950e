package phototag

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// legacyLabelCount is how many object labels the legacy classifier keeps.
const legacyLabelCount = 3

// Labeler abstracts a single-pass image labelling model that returns the
// k most prominent object labels, most prominent first.
type Labeler interface {
	Labels(ctx context.Context, imagePath string, k int) ([]string, error)
}

// LegacyResult is the output of LegacyClassifier.
type LegacyResult struct {
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence,omitempty"`
}

// LegacyClassifier is the single-model classifier used by upload handlers
// when Analyzer falls back. Unlike Analyzer it returns errors; callers are
// expected to fall back to FallbackAnalysis themselves.
type LegacyClassifier struct {
	Model *Resource[Labeler]
}

// NewLegacyClassifier returns a classifier backed by model.
func NewLegacyClassifier(model *Resource[Labeler]) *LegacyClassifier {
	return &LegacyClassifier{Model: model}
}

// Classify labels the image and maps the labels to a category.
func (c *LegacyClassifier) Classify(ctx context.Context, imagePath string) (LegacyResult, error) {
	if c == nil || c.Model == nil {
		return LegacyResult{}, errors.New("legacy classifier: no model configured")
	}
	labeler, err := c.Model.Get(ctx)
	if err != nil {
		return LegacyResult{}, fmt.Errorf("legacy classifier: load model: %w", err)
	}
	labels, err := labeler.Labels(ctx, imagePath, legacyLabelCount)
	if err != nil {
		return LegacyResult{}, fmt.Errorf("legacy classifier: %w", err)
	}

	tags := make([]string, 0, legacyLabelCount)
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		tags = append(tags, l)
		if len(tags) == legacyLabelCount {
			break
		}
	}
	if len(tags) == 0 {
		return LegacyResult{}, fmt.Errorf("legacy classifier: %w", ErrNoScores)
	}

	return LegacyResult{Category: MapLabelsToCategory(tags), Tags: tags}, nil
}

type categoryRule struct {
	category string
	keywords []string
}

// Order matters: the first rule with any keyword in the labels wins.
var categoryRules = []categoryRule{
	{"wildlife", []string{
		"bird", "duck", "goose", "swan", "eagle", "hawk", "owl", "animal", "mammal",
		"dog", "cat", "fox", "wolf", "bear", "deer", "horse", "cow", "sheep", "goat",
		"monkey", "penguin", "fish", "insect", "butterfly", "dragonfly", "lizard",
		"reptile", "snake", "turtle", "frog", "toad", "crocodile", "alligator",
		"iguana", "chameleon",
	}},
	{"portrait", []string{
		"person", "people", "man", "woman", "girl", "boy", "face", "portrait",
		"selfie", "bride", "groom", "hair", "wig", "mask", "sunglasses",
	}},
	{"nature", []string{
		"mountain", "valley", "waterfall", "river", "lake", "sea", "ocean", "beach",
		"forest", "tree", "woodland", "flower", "plant", "sky", "cloud", "desert",
		"hill", "cliff", "rock", "glacier", "bay", "grass", "park", "garden", "sun",
		"moon", "volcano",
	}},
	{"street", []string{
		"street", "road", "city", "urban", "traffic", "car", "bus", "bicycle",
		"building", "skyscraper", "bridge", "sidewalk", "crosswalk", "plaza",
		"market", "station", "train", "metro", "shop", "store", "neon", "night",
		"light",
	}},
	{"culture", []string{
		"statue", "sculpture", "art", "painting", "graffiti", "mural", "lantern",
		"dragon", "temple", "shrine", "church", "mosque", "castle", "palace",
		"festival", "parade", "costume", "dance", "music", "instrument", "stage",
		"theater", "cinema", "museum", "gallery", "monument", "balloon",
	}},
}

// MapLabelsToCategory picks a portfolio category from object labels by
// substring match, defaulting to "travel".
func MapLabelsToCategory(labels []string) string {
	joined := strings.ToLower(strings.Join(labels, " "))
	for _, r := range categoryRules {
		for _, kw := range r.keywords {
			if strings.Contains(joined, kw) {
				return r.category
			}
		}
	}
	return "travel"
}
