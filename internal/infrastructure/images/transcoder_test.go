package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTranscoderConvertsToJPEG(t *testing.T) {
	tr := NewTranscoder(1024, zap.NewNop())

	out, contentType := tr.Process(pngBytes(t, 100, 80))
	assert.Equal(t, "image/jpeg", contentType)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}

func TestTranscoderDownscalesWideImages(t *testing.T) {
	tr := NewTranscoder(200, zap.NewNop())

	out, contentType := tr.Process(pngBytes(t, 400, 300))
	assert.Equal(t, "image/jpeg", contentType)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 150, decoded.Bounds().Dy())
}

func TestTranscoderLeavesNarrowImagesUnscaled(t *testing.T) {
	tr := NewTranscoder(200, zap.NewNop())

	out, _ := tr.Process(pngBytes(t, 150, 150))
	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 150, decoded.Bounds().Dx())
}

func TestTranscoderFallsBackOnUndecodableInput(t *testing.T) {
	tr := NewTranscoder(1024, zap.NewNop())
	garbage := []byte("definitely not an image")

	out, contentType := tr.Process(garbage)
	assert.Equal(t, garbage, out)
	assert.NotEmpty(t, contentType)
}
