package ocr

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DefaultTargetResolution is the longer-dimension size scans are scaled to
// before recognition. InBody readouts photographed with a phone are usually
// larger; smaller inputs are left alone to avoid upscaling artifacts.
const DefaultTargetResolution = 1200

// PreprocessedImage is the temp-file output of one preprocessing run. The
// caller owns the file and must call Cleanup once recognition is done,
// on success and failure paths alike.
type PreprocessedImage struct {
	Path     string
	Degraded bool // preprocessing failed, Path holds the original bytes
}

// Cleanup removes the intermediate file. Deletion failure is only logged;
// it never escalates into a pipeline failure.
func (p *PreprocessedImage) Cleanup() {
	if p == nil || p.Path == "" {
		return
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("[Preprocessor] failed to remove temp image %s: %v", p.Path, err)
	}
}

// Preprocessor normalizes scan photos for the recognition engine
type Preprocessor struct {
	targetResolution int
}

// NewPreprocessor creates a preprocessor. A non-positive target resolution
// falls back to DefaultTargetResolution.
func NewPreprocessor(targetResolution int) *Preprocessor {
	if targetResolution <= 0 {
		targetResolution = DefaultTargetResolution
	}
	return &Preprocessor{targetResolution: targetResolution}
}

// Preprocess enhances a scan photo for OCR and writes it to a temp PNG.
// Pipeline: resize (longer dimension to target, never upscaled) -> greyscale
// -> contrast normalization -> sharpen, in that fixed order.
//
// Preprocess does not fail on bad image data: a corrupt or unreadable upload
// falls back to writing the original bytes unchanged, because degraded OCR
// beats no OCR at all. The only error path is being unable to write the
// temp file itself.
func (p *Preprocessor) Preprocess(imageData []byte) (*PreprocessedImage, error) {
	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("inbody_%s.png", uuid.New().String()[:8]))

	src, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		log.Printf("[Preprocessor] decode failed, using original image: %v", err)
		return p.writeOriginal(outPath, imageData)
	}

	processed := p.enhance(src)

	if err := imaging.Save(processed, outPath); err != nil {
		log.Printf("[Preprocessor] save failed, using original image: %v", err)
		return p.writeOriginal(outPath, imageData)
	}

	return &PreprocessedImage{Path: outPath}, nil
}

// enhance applies the transform chain. Order matters: normalization works on
// the greyscale histogram, and sharpening amplifies the normalized edges.
func (p *Preprocessor) enhance(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	longer := w
	if h > w {
		longer = h
	}
	if longer > p.targetResolution {
		if w >= h {
			src = imaging.Resize(src, p.targetResolution, 0, imaging.Lanczos)
		} else {
			src = imaging.Resize(src, 0, p.targetResolution, imaging.Lanczos)
		}
	}

	grey := imaging.Grayscale(src)
	normalized := imaging.AdjustContrast(grey, 20)
	return imaging.Sharpen(normalized, 1.0)
}

// writeOriginal persists the untouched upload so recognition still has a file
// to work with when enhancement is impossible.
func (p *Preprocessor) writeOriginal(outPath string, imageData []byte) (*PreprocessedImage, error) {
	if err := os.WriteFile(outPath, imageData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write scan image: %w", err)
	}
	return &PreprocessedImage{Path: outPath, Degraded: true}, nil
}
