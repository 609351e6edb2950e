package phototag

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// modelInputMaxDim is the longest edge of images sent to inference backends.
const modelInputMaxDim = 768

const modelInputQuality = 85

// ReadModelImage loads imagePath and returns it as a JPEG no larger than
// maxDim on its longest edge (0 = modelInputMaxDim). Model backends accept
// JPEG reliably; webp and large originals are normalized here.
func ReadModelImage(imagePath string, maxDim int) ([]byte, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	return PrepareModelImage(data, maxDim)
}

type modelImageCacheKey struct{}

type modelImageKey struct {
	path   string
	maxDim int
}

type modelImageEntry struct {
	once sync.Once
	data []byte
	err  error
}

type modelImageCache struct {
	mu      sync.Mutex
	entries map[modelImageKey]*modelImageEntry
}

// WithModelImageCache returns a context under which ModelImage prepares each
// (path, size) pair at most once. Analyzer.Analyze installs one per call so
// the scene sets and the depth step share a single decode and re-encode.
func WithModelImageCache(ctx context.Context) context.Context {
	if _, ok := ctx.Value(modelImageCacheKey{}).(*modelImageCache); ok {
		return ctx
	}
	return context.WithValue(ctx, modelImageCacheKey{}, &modelImageCache{
		entries: make(map[modelImageKey]*modelImageEntry),
	})
}

// ModelImage is ReadModelImage served from the context's cache when one is
// installed. The returned bytes are shared and must not be modified.
func ModelImage(ctx context.Context, imagePath string, maxDim int) ([]byte, error) {
	c, ok := ctx.Value(modelImageCacheKey{}).(*modelImageCache)
	if !ok {
		return ReadModelImage(imagePath, maxDim)
	}
	if maxDim <= 0 {
		maxDim = modelInputMaxDim
	}

	key := modelImageKey{path: imagePath, maxDim: maxDim}
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &modelImageEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.data, e.err = ReadModelImage(imagePath, maxDim)
	})
	return e.data, e.err
}

// PrepareModelImage is ReadModelImage over in-memory bytes.
func PrepareModelImage(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = modelInputMaxDim
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: modelInputQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale shrinks img so its longest edge is at most maxDim, keeping the
// aspect ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
