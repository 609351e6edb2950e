package phototag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/ollama/ollama/api"
)

const (
	defaultOllamaAttempts = 3
	defaultLabelCount     = 3
)

// OllamaConfig configures a vision model served by Ollama.
type OllamaConfig struct {
	Endpoint    string         // e.g. "http://localhost:11434"
	Model       string         // vision-capable model, e.g. "llava:13b"
	KeepAlive   time.Duration  // how long Ollama keeps the model resident (0 = server default)
	Options     map[string]any // extra model options (temperature, num_ctx, ...)
	Attempts    uint           // generate attempts (default: 3)
	MaxImageDim int            // longest edge of the uploaded image (default: 768)
	HTTPClient  *http.Client   // default: http.DefaultClient
}

// OllamaBackend implements Scorer and Labeler on top of an Ollama vision
// model. Zero-shot scores are obtained by asking the model for a probability
// per candidate label.
type OllamaBackend struct {
	client *api.Client
	cfg    OllamaConfig
}

// NewOllamaBackend validates cfg and builds a client. It does not contact the server.
func NewOllamaBackend(cfg OllamaConfig) (*OllamaBackend, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama: model is required")
	}
	base, err := url.Parse(cfg.Endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama: invalid endpoint %q", cfg.Endpoint)
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = defaultOllamaAttempts
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &OllamaBackend{
		client: api.NewClient(base, cfg.HTTPClient),
		cfg:    cfg,
	}, nil
}

// Ping checks that the configured model exists on the server.
func (b *OllamaBackend) Ping(ctx context.Context) error {
	if _, err := b.client.Show(ctx, &api.ShowRequest{Model: b.cfg.Model}); err != nil {
		return fmt.Errorf("ollama: model %s unavailable: %w", b.cfg.Model, err)
	}
	return nil
}

// OllamaScorerLoader returns a Loader that connects to Ollama and verifies
// the model once. Wrap it in NewResource to get the lazy singleton.
func OllamaScorerLoader(cfg OllamaConfig) Loader[Scorer] {
	return func(ctx context.Context) (Scorer, error) {
		b, err := NewOllamaBackend(cfg)
		if err != nil {
			return nil, err
		}
		if err := b.Ping(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// OllamaLabelerLoader is OllamaScorerLoader for the legacy Labeler interface.
func OllamaLabelerLoader(cfg OllamaConfig) Loader[Labeler] {
	return func(ctx context.Context) (Labeler, error) {
		b, err := NewOllamaBackend(cfg)
		if err != nil {
			return nil, err
		}
		if err := b.Ping(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
}

const scorePrompt = `You are a zero-shot image classifier for a photography portfolio.
Rate how well each numbered description matches this photo.

Descriptions:
%s

Respond with only a JSON object of the form {"scores": [s1, s2, ...]} containing
exactly %d numbers between 0 and 1, one per description, in the same order.
The scores should sum to 1.`

// Score implements Scorer.
func (b *OllamaBackend) Score(ctx context.Context, imagePath string, labels []string) ([]LabelScore, error) {
	img, err := ModelImage(ctx, imagePath, b.cfg.MaxImageDim)
	if err != nil {
		return nil, err
	}

	var list strings.Builder
	for i, l := range labels {
		fmt.Fprintf(&list, "%d. %s\n", i+1, l)
	}

	resp, err := b.generate(ctx, fmt.Sprintf(scorePrompt, strings.TrimRight(list.String(), "\n"), len(labels)), img)
	if err != nil {
		return nil, err
	}

	scores, err := ParseLabelScores(resp, labels)
	if err != nil {
		slog.Debug("phototag: unusable score response", "model", b.cfg.Model, "response", resp)
		return nil, err
	}
	return scores, nil
}

const labelPrompt = `List the %d most prominent objects or scene types visible in this photo,
most prominent first, using short lowercase nouns (for example "mountain", "bird", "street").
Respond with only a JSON object of the form {"labels": ["...", "..."]}.`

// Labels implements Labeler.
func (b *OllamaBackend) Labels(ctx context.Context, imagePath string, k int) ([]string, error) {
	if k <= 0 {
		k = defaultLabelCount
	}
	img, err := ModelImage(ctx, imagePath, b.cfg.MaxImageDim)
	if err != nil {
		return nil, err
	}
	resp, err := b.generate(ctx, fmt.Sprintf(labelPrompt, k), img)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(resp)), &parsed); err != nil {
		return nil, fmt.Errorf("ollama: parse labels: %w", err)
	}

	var labels []string
	for _, l := range parsed.Labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		labels = append(labels, l)
		if len(labels) == k {
			break
		}
	}
	if len(labels) == 0 {
		return nil, ErrNoScores
	}
	return labels, nil
}

func (b *OllamaBackend) generate(ctx context.Context, prompt string, img []byte) (string, error) {
	req := &api.GenerateRequest{
		Model:   b.cfg.Model,
		Prompt:  prompt,
		Stream:  &[]bool{false}[0],
		Format:  json.RawMessage(`"json"`),
		Images:  []api.ImageData{img},
		Options: b.cfg.Options,
	}
	if b.cfg.KeepAlive > 0 {
		req.KeepAlive = &api.Duration{Duration: b.cfg.KeepAlive}
	}

	var response strings.Builder
	err := retry.Do(
		func() error {
			response.Reset() // Clear previous attempts
			return b.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
				response.WriteString(resp.Response)
				return nil
			})
		},
		retry.Attempts(b.cfg.Attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("ollama: generate after retries: %w", err)
	}
	return removeThinkTags(response.String()), nil
}

// ParseLabelScores maps a {"scores": [...]} model response onto labels.
// Negative scores are clamped to zero and the result is normalized to sum
// to 1, matching the softmax output of a contrastive model.
func ParseLabelScores(resp string, labels []string) ([]LabelScore, error) {
	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(resp)), &parsed); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}
	if len(parsed.Scores) != len(labels) {
		return nil, fmt.Errorf("parse scores: got %d scores for %d labels", len(parsed.Scores), len(labels))
	}

	var sum float64
	for i, s := range parsed.Scores {
		if s < 0 || !isFinite(s) {
			parsed.Scores[i] = 0
			continue
		}
		sum += s
	}
	if sum == 0 {
		return nil, ErrNoScores
	}

	out := make([]LabelScore, len(labels))
	for i, l := range labels {
		out[i] = LabelScore{Label: l, Score: parsed.Scores[i] / sum}
	}
	return out, nil
}

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	thinkOpenRe  = regexp.MustCompile(`(?s)<think>.*`)
)

// removeThinkTags strips reasoning blocks some models emit before the answer.
func removeThinkTags(text string) string {
	text = thinkBlockRe.ReplaceAllString(text, "")
	text = thinkOpenRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// extractJSONObject returns the outermost {...} span of s, or s unchanged.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
