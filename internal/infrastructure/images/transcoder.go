// Package images transcodes generated image bytes into a compact
// serving format before upload.
package images

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // generated images commonly arrive as PNG

	"net/http"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/mealforge/mealforge/internal/ports/outbound"
)

// Transcoder converts raw generated images to bounded-width JPEG.
// Strictly best-effort: any decode or encode failure falls back to the
// original bytes and their sniffed content type, never an error, so a
// transcoding problem can never fail the generation pipeline.
type Transcoder struct {
	maxWidth int
	quality  int
	logger   *zap.Logger
}

// NewTranscoder creates a transcoder bounding output width at maxWidth
func NewTranscoder(maxWidth int, logger *zap.Logger) *Transcoder {
	if maxWidth <= 0 {
		maxWidth = 1024
	}
	return &Transcoder{maxWidth: maxWidth, quality: 82, logger: logger}
}

// Process transcodes data to JPEG, downscaling when wider than the
// bound. On failure it returns the input unchanged.
func (t *Transcoder) Process(data []byte) ([]byte, string) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.logger.Warn("image decode failed, keeping original bytes", zap.Error(err))
		return data, http.DetectContentType(data)
	}

	bounds := src.Bounds()
	if bounds.Dx() > t.maxWidth {
		scale := float64(t.maxWidth) / float64(bounds.Dx())
		dst := image.NewRGBA(image.Rect(0, 0, t.maxWidth, int(float64(bounds.Dy())*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: t.quality}); err != nil {
		t.logger.Warn("jpeg encode failed, keeping original bytes",
			zap.String("source_format", format),
			zap.Error(err))
		return data, http.DetectContentType(data)
	}

	return buf.Bytes(), "image/jpeg"
}

var _ outbound.ImageProcessor = (*Transcoder)(nil)
