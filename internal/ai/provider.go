package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// Provider transcribes a scan photo through a vision model. Used as an
// alternative recognition engine when local tesseract is unavailable.
type Provider interface {
	Transcribe(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

// transcriptionPrompt asks the vision model to act as a plain OCR engine:
// verbatim text out, no interpretation, so the downstream field extractor
// sees the same kind of input tesseract would produce.
const transcriptionPrompt = `Transcribe TODO el texto visible en esta imagen de un resultado de analisis corporal InBody.

Reglas:
- Devuelve SOLO el texto transcrito, linea por linea, sin comentarios ni formato markdown.
- Conserva las etiquetas en espanol tal como aparecen (Peso, Masa muscular, Grasa corporal, IMC, Puntos, etc).
- Conserva los numeros y unidades exactamente como se leen (kg, %, kg/m2, kcal).
- Conserva la fecha y hora si aparecen (formato DD.MM.YYYY HH:MM).
- NO inventes valores que no puedas leer.`

// VisionRecognizer adapts a vision-model provider to the pipeline's
// Recognizer boundary. Vision models report no recognition confidence, so a
// configured assumed confidence is attached to every result.
type VisionRecognizer struct {
	provider          Provider
	assumedConfidence float64
}

// NewVisionRecognizer wraps provider. A non-positive assumedConfidence
// defaults to 85.
func NewVisionRecognizer(provider Provider, assumedConfidence float64) *VisionRecognizer {
	if assumedConfidence <= 0 {
		assumedConfidence = 85
	}
	return &VisionRecognizer{provider: provider, assumedConfidence: assumedConfidence}
}

// Recognize reads the preprocessed image and has the vision model
// transcribe it.
func (v *VisionRecognizer) Recognize(ctx context.Context, imagePath string) (*models.RecognitionResult, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image for vision transcription: %w", err)
	}

	text, err := v.provider.Transcribe(ctx, imageData, "image/png")
	if err != nil {
		return nil, fmt.Errorf("vision transcription failed: %w", err)
	}

	return &models.RecognitionResult{
		RawText:           text,
		ConfidenceOverall: v.assumedConfidence,
	}, nil
}
