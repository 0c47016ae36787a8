// Package pipeline orchestrates one scan-processing invocation:
// preprocess -> recognize -> extract -> validate -> deltas -> assemble.
// Stages run strictly in that order; invocations are independent and share
// only the recognition engine, which serializes its own access.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nutriclinica/inbody-ocr-service/internal/extract"
	"github.com/nutriclinica/inbody-ocr-service/internal/models"
	"github.com/nutriclinica/inbody-ocr-service/internal/ocr"
	"github.com/nutriclinica/inbody-ocr-service/internal/services"
)

// DefaultLowConfidenceThreshold: recognition confidence below this is
// surfaced as a warning on the assembled measurement, never silently passed.
const DefaultLowConfidenceThreshold = 70.0

// Recognizer is the external text-recognition capability boundary: given a
// preprocessed image file, produce raw text plus an overall confidence.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (*models.RecognitionResult, error)
}

// PriorLookup fetches the subject's most recent prior measurement fields,
// or nil when the subject has none. Supplied by the persistence collaborator.
type PriorLookup func(ctx context.Context, patientID string) (*models.ExtractedFields, error)

// Pipeline runs the full InBody scan extraction flow
type Pipeline struct {
	preprocessor *ocr.Preprocessor
	recognizer   Recognizer
	validator    *services.Validator

	lowConfidenceThreshold float64
}

// New creates a pipeline around the given recognizer. A non-positive
// threshold falls back to DefaultLowConfidenceThreshold.
func New(preprocessor *ocr.Preprocessor, recognizer Recognizer, lowConfidenceThreshold float64) *Pipeline {
	if lowConfidenceThreshold <= 0 {
		lowConfidenceThreshold = DefaultLowConfidenceThreshold
	}
	return &Pipeline{
		preprocessor:           preprocessor,
		recognizer:             recognizer,
		validator:              services.NewValidator(),
		lowConfidenceThreshold: lowConfidenceThreshold,
	}
}

// Run processes one uploaded scan photo into an assembled measurement.
//
// Only recognition-engine failures propagate as errors (retryable by the
// caller). Preprocessing degradation falls back to the original image,
// parse misses stay absent, and validation failures come back as data on
// the measurement (Success=false) rather than as an error.
func (p *Pipeline) Run(
	ctx context.Context,
	imageData []byte,
	sourceFilename string,
	patientID string,
	userID string,
	prior PriorLookup,
) (*models.Measurement, error) {
	start := time.Now()

	processed, err := p.preprocessor.Preprocess(imageData)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}
	defer processed.Cleanup()

	recognition, err := p.recognizer.Recognize(ctx, processed.Path)
	if err != nil {
		return nil, err
	}

	fields := extract.Extract(recognition.RawText)
	validation := p.validator.Validate(&fields)

	// Low recognition confidence must reach the consumer as a warning;
	// validation itself only ever annotates, so the pipeline adds it here.
	if recognition.ConfidenceOverall < p.lowConfidenceThreshold {
		validation.Warnings = append(validation.Warnings, models.ValidationWarning{
			Field:   "confidence",
			Code:    "low_confidence",
			Message: fmt.Sprintf("Confianza OCR baja: %.0f%%", recognition.ConfidenceOverall),
		})
	}

	deltas := models.DeltaSet{}
	if prior != nil {
		previous, err := prior(ctx, patientID)
		if err != nil {
			// Prior lookup is enrichment, not a gate: log and continue
			// with an empty delta set.
			log.Printf("[Pipeline] prior measurement lookup failed for patient %s: %v", patientID, err)
		} else {
			deltas = services.ComputeDeltas(&fields, previous)
		}
	}

	measurement := services.Assemble(&fields, validation, deltas, recognition, patientID, userID, sourceFilename)

	log.Printf("[Pipeline] scan processed in %.2fs (confidence=%.0f%%, fields warnings=%d errors=%d)",
		time.Since(start).Seconds(), recognition.ConfidenceOverall,
		len(validation.Warnings), len(validation.Errors))

	return measurement, nil
}
