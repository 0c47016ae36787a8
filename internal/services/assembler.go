package services

import (
	"strings"
	"time"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// measuredAtLayout is the canonical timestamp form the extractor produces
const measuredAtLayout = "2006-01-02 15:04:05"

// Assemble maps validated fields, deltas and provenance into the canonical
// measurement record handed to persistence.
//
// MeasuredAt policy: the extracted measurement timestamp is used when
// present; otherwise the record deliberately falls back to the wall-clock
// time at assembly. Callers relying on MeasuredAt should treat a record
// without an extracted timestamp accordingly.
func Assemble(
	fields *models.ExtractedFields,
	validation *models.ValidationResult,
	deltas models.DeltaSet,
	recognition *models.RecognitionResult,
	patientID string,
	userID string,
	sourceFilename string,
) *models.Measurement {
	now := time.Now()

	measuredAt := now
	if ts := fields.MeasurementTimestamp; ts != nil {
		if t, err := time.ParseInLocation(measuredAtLayout, *ts, time.Local); err == nil {
			measuredAt = t
		}
	}

	return &models.Measurement{
		PatientID:      patientID,
		UserID:         userID,
		Fields:         *fields,
		Deltas:         deltas,
		MeasuredAt:     measuredAt,
		Observations:   observations(validation),
		Success:        validation.Valid,
		SourceFilename: sourceFilename,
		RawText:        recognition.RawText,
		Confidence:     recognition.ConfidenceOverall,
		ProcessedAt:    now,
	}
}

// observations renders the validation outcome as a human-readable note for
// the clinic staff reviewing the record.
func observations(validation *models.ValidationResult) string {
	if len(validation.Warnings) == 0 && len(validation.Errors) == 0 {
		return "Datos extraidos automaticamente del escaneo InBody."
	}

	var notes []string
	for _, e := range validation.Errors {
		notes = append(notes, e.Message)
	}
	for _, w := range validation.Warnings {
		notes = append(notes, w.Message)
	}
	return "Advertencias OCR: " + strings.Join(notes, "; ")
}
