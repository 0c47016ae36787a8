package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

func sptr(s string) *string { return &s }

func cleanValidation() *models.ValidationResult {
	return &models.ValidationResult{
		Valid:    true,
		Errors:   []models.ValidationError{},
		Warnings: []models.ValidationWarning{},
	}
}

func TestAssemble_CleanMeasurement(t *testing.T) {
	fields := &models.ExtractedFields{
		WeightKg:             fptr(82.3),
		MeasurementTimestamp: sptr("2025-09-08 16:41:00"),
		RawText:              "Peso 82.3 kg",
	}
	recognition := &models.RecognitionResult{RawText: "Peso 82.3 kg", ConfidenceOverall: 91.0}
	deltas := models.DeltaSet{"weight_kg": -2.0}

	m := Assemble(fields, cleanValidation(), deltas, recognition, "patient-1", "user-1", "scan.jpg")

	assert.Equal(t, "patient-1", m.PatientID)
	assert.Equal(t, "user-1", m.UserID)
	assert.Equal(t, "scan.jpg", m.SourceFilename)
	assert.True(t, m.Success)
	assert.Equal(t, "Datos extraidos automaticamente del escaneo InBody.", m.Observations)
	assert.Equal(t, 91.0, m.Confidence)
	assert.Equal(t, "Peso 82.3 kg", m.RawText)
	assert.Equal(t, deltas, m.Deltas)

	expected := time.Date(2025, 9, 8, 16, 41, 0, 0, time.Local)
	assert.True(t, m.MeasuredAt.Equal(expected))
}

func TestAssemble_MeasuredAtFallsBackToNow(t *testing.T) {
	before := time.Now()
	m := Assemble(&models.ExtractedFields{}, cleanValidation(), models.DeltaSet{},
		&models.RecognitionResult{}, "patient-1", "user-1", "scan.jpg")
	after := time.Now()

	assert.False(t, m.MeasuredAt.Before(before))
	assert.False(t, m.MeasuredAt.After(after))
}

func TestAssemble_WarningsInObservations(t *testing.T) {
	validation := cleanValidation()
	validation.Warnings = append(validation.Warnings, models.ValidationWarning{
		Field:   "weight_kg",
		Code:    "weight_out_of_range",
		Message: "Peso 15.0 kg fuera del rango plausible [30, 300]",
	})

	m := Assemble(&models.ExtractedFields{WeightKg: fptr(15.0)}, validation,
		models.DeltaSet{}, &models.RecognitionResult{}, "p", "u", "scan.jpg")

	assert.True(t, m.Success)
	require.True(t, strings.HasPrefix(m.Observations, "Advertencias OCR: "))
	assert.Contains(t, m.Observations, "Peso 15.0 kg")
}

func TestAssemble_ErrorsBlockSuccess(t *testing.T) {
	validation := cleanValidation()
	validation.Valid = false
	validation.Errors = append(validation.Errors, models.ValidationError{
		Field:   "muscle_mass_kg",
		Code:    "muscle_exceeds_weight",
		Message: "Masa muscular 80.0 kg mayor que el peso total 70.0 kg",
	})

	m := Assemble(&models.ExtractedFields{}, validation, models.DeltaSet{},
		&models.RecognitionResult{}, "p", "u", "scan.jpg")

	assert.False(t, m.Success)
	assert.Contains(t, m.Observations, "Masa muscular 80.0 kg")
}

func TestAssemble_JoinsMultipleNotes(t *testing.T) {
	validation := cleanValidation()
	validation.Valid = false
	validation.Errors = append(validation.Errors, models.ValidationError{Message: "error uno"})
	validation.Warnings = append(validation.Warnings, models.ValidationWarning{Message: "aviso dos"})

	m := Assemble(&models.ExtractedFields{}, validation, models.DeltaSet{},
		&models.RecognitionResult{}, "p", "u", "scan.jpg")

	assert.Contains(t, m.Observations, "error uno; aviso dos")
}
