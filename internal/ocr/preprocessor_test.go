package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreprocess_ValidImage(t *testing.T) {
	p := NewPreprocessor(1200)

	processed, err := p.Preprocess(testPNG(t, 200, 100))
	require.NoError(t, err)
	defer processed.Cleanup()

	assert.False(t, processed.Degraded)
	_, err = os.Stat(processed.Path)
	assert.NoError(t, err)
}

func TestPreprocess_DownscalesLongerDimension(t *testing.T) {
	p := NewPreprocessor(100)

	processed, err := p.Preprocess(testPNG(t, 400, 200))
	require.NoError(t, err)
	defer processed.Cleanup()

	img, err := imaging.Open(processed.Path)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestPreprocess_NeverUpscales(t *testing.T) {
	p := NewPreprocessor(1200)

	processed, err := p.Preprocess(testPNG(t, 80, 40))
	require.NoError(t, err)
	defer processed.Cleanup()

	img, err := imaging.Open(processed.Path)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestPreprocess_CorruptImageFallsBackToOriginal(t *testing.T) {
	p := NewPreprocessor(1200)
	original := []byte("this is not an image")

	processed, err := p.Preprocess(original)
	require.NoError(t, err)
	defer processed.Cleanup()

	assert.True(t, processed.Degraded)

	written, err := os.ReadFile(processed.Path)
	require.NoError(t, err)
	assert.Equal(t, original, written)
}

func TestCleanup_RemovesTempFile(t *testing.T) {
	p := NewPreprocessor(1200)

	processed, err := p.Preprocess(testPNG(t, 50, 50))
	require.NoError(t, err)

	processed.Cleanup()
	_, err = os.Stat(processed.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanup_NilAndMissingFileAreNoOps(t *testing.T) {
	var p *PreprocessedImage
	p.Cleanup()

	p = &PreprocessedImage{Path: "/tmp/inbody_does_not_exist.png"}
	p.Cleanup()
}
