package phototag

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// makeJPEG returns a minimal valid JPEG of the given dimensions.
func makeJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(1, w)), G: uint8(y * 255 / max(1, h)), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic("makeJPEG: " + err.Error())
	}
	return buf.Bytes()
}

// writeImage stores a small JPEG in a temp dir and returns its path.
func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, makeJPEG(32, 24), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeScorer scores labels from a fixed table; unknown labels get 0.01.
type fakeScorer struct {
	scores map[string]float64
	err    error
}

func (f *fakeScorer) Score(_ context.Context, _ string, labels []string) ([]LabelScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]LabelScore, len(labels))
	for i, l := range labels {
		s, ok := f.scores[l]
		if !ok {
			s = 0.01
		}
		out[i] = LabelScore{Label: l, Score: s}
	}
	return out, nil
}

func staticResource[T any](name string, v T, err error) *Resource[T] {
	return NewResource(name, func(context.Context) (T, error) { return v, err })
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
