package phototag

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned by ProbeImage for data that no registered decoder accepts.
var ErrNotImage = errors.New("phototag: not a supported image")

// ImageInfo describes an uploaded image without decoding its pixels.
type ImageInfo struct {
	Width    int
	Height   int
	Format   string // decoder name: "jpeg", "png", "gif", "webp"
	MIMEType string
}

// ProbeImage reads dimensions and format from the image header.
//   - Content must sniff as image/*
//   - A registered decoder must accept the header
//   - Both dimensions must be positive
func ProbeImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, ErrNotImage
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		slog.Debug("phototag: rejected non-image upload", "content_type", ct)
		return ImageInfo{}, fmt.Errorf("%w: content type %s", ErrNotImage, ct)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: %dx%d", ErrNotImage, cfg.Width, cfg.Height)
	}

	return ImageInfo{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   format,
		MIMEType: ct,
	}, nil
}
