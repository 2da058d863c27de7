// Package media transcodes inbound image attachments into compact data
// URIs suitable for vision-capable completion requests.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// Transcoder decodes an image, scales it down to fit within a square
// bounding box (never upscaling), and re-encodes it as lossy JPEG wrapped
// in a data URI. Encoding is CPU-bound, so concurrent calls are bounded by
// a semaphore sized to GOMAXPROCS; callers await the result.
type Transcoder struct {
	logger   *slog.Logger
	maxPixel int
	quality  int
	sem      *semaphore.Weighted
}

// NewTranscoder creates a transcoder with the given bounding box and JPEG
// quality setting.
func NewTranscoder(log *slog.Logger, maxPixel, quality int) *Transcoder {
	if log == nil {
		log = slog.Default()
	}
	return &Transcoder{
		logger:   log.With(slog.String("service", "media")),
		maxPixel: maxPixel,
		quality:  quality,
		sem:      semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// DataURI transcodes raw image bytes into a JPEG data URI.
func (t *Transcoder) DataURI(ctx context.Context, raw []byte) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire transcode slot: %w", err)
	}
	defer t.sem.Release(1)

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > t.maxPixel || bounds.Dy() > t.maxPixel {
		// Fit preserves aspect ratio and never upscales.
		img = imaging.Fit(img, t.maxPixel, t.maxPixel, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(t.quality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	t.logger.Debug("image transcoded",
		slog.Int("input_bytes", len(raw)),
		slog.Int("output_bytes", buf.Len()),
	)
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
