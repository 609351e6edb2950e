package phototag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
)

const (
	defaultDepthTimeout  = 60 * time.Second
	defaultDepthAttempts = 2
	maxDepthResponse     = 64 << 20 // 64MB, a float map of a 4K frame
)

// HTTPDepthEstimator calls a depth inference server (for example a
// Depth-Anything deployment). The image is POSTed as JPEG and the server
// answers with {"width":W,"height":H,"depth":[...]}.
type HTTPDepthEstimator struct {
	Endpoint    string        // required: inference URL
	HealthURL   string        // optional: probed once by HTTPDepthLoader
	HTTPClient  *http.Client  // default: http.DefaultClient
	Timeout     time.Duration // per-request timeout (default: 60s)
	Attempts    uint          // default: 2
	MaxImageDim int           // default: 768
}

// HTTPDepthLoader returns a Loader that checks the server once before use.
func HTTPDepthLoader(e HTTPDepthEstimator) Loader[DepthEstimator] {
	return func(ctx context.Context) (DepthEstimator, error) {
		if e.Endpoint == "" {
			return nil, errors.New("depth: endpoint is required")
		}
		e.defaults()
		if e.HealthURL != "" {
			if err := e.probe(ctx); err != nil {
				return nil, err
			}
		}
		return &e, nil
	}
}

func (e *HTTPDepthEstimator) defaults() {
	if e.HTTPClient == nil {
		e.HTTPClient = http.DefaultClient
	}
	if e.Timeout <= 0 {
		e.Timeout = defaultDepthTimeout
	}
	if e.Attempts == 0 {
		e.Attempts = defaultDepthAttempts
	}
}

func (e *HTTPDepthEstimator) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.HealthURL, nil)
	if err != nil {
		return fmt.Errorf("depth: health request: %w", err)
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("depth: health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("depth: health check: status %d", resp.StatusCode)
	}
	return nil
}

// Estimate implements DepthEstimator.
func (e *HTTPDepthEstimator) Estimate(ctx context.Context, imagePath string) (*DepthMap, error) {
	c := *e
	c.defaults()

	img, err := ModelImage(ctx, imagePath, c.MaxImageDim)
	if err != nil {
		return nil, err
	}

	var dm *DepthMap
	err = retry.Do(
		func() error {
			var err error
			dm, err = c.post(ctx, img)
			return err
		},
		retry.Attempts(c.Attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	return dm, nil
}

func (e *HTTPDepthEstimator) post(ctx context.Context, img []byte) (*DepthMap, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("depth: request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("depth: status %d", resp.StatusCode)
	}

	var dm DepthMap
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDepthResponse)).Decode(&dm); err != nil {
		return nil, fmt.Errorf("depth: decode response: %w", err)
	}
	if len(dm.Data) == 0 {
		return nil, errors.New("depth: empty depth map")
	}
	if dm.Width > 0 && dm.Height > 0 && dm.Width*dm.Height != len(dm.Data) {
		return nil, fmt.Errorf("depth: %dx%d map has %d samples", dm.Width, dm.Height, len(dm.Data))
	}
	return &dm, nil
}
