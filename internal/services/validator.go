package services

import (
	"fmt"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// Plausibility ranges for an adult InBody measurement. Values outside them
// are suspicious OCR output but not impossible, so they only warn.
const (
	minWeightKg = 30.0
	maxWeightKg = 300.0

	minBMI = 10.0
	maxBMI = 60.0

	minFatPercentage = 5.0
	maxFatPercentage = 50.0
)

// Validator applies plausibility ranges and cross-field consistency checks
// to extracted fields.
type Validator struct{}

// NewValidator creates a new field validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the extracted fields and returns warnings (soft) and
// errors (hard). It is a pure function: fields are never mutated, absent
// fields are never checked, and Valid is true iff the error list is empty.
// Warnings never affect Valid.
func (v *Validator) Validate(fields *models.ExtractedFields) *models.ValidationResult {
	result := &models.ValidationResult{
		Valid:    true,
		Errors:   []models.ValidationError{},
		Warnings: []models.ValidationWarning{},
	}

	if w := fields.WeightKg; w != nil && (*w < minWeightKg || *w > maxWeightKg) {
		result.Warnings = append(result.Warnings, models.ValidationWarning{
			Field:   "weight_kg",
			Code:    "weight_out_of_range",
			Message: fmt.Sprintf("Peso %.1f kg fuera del rango plausible [%.0f, %.0f]", *w, minWeightKg, maxWeightKg),
		})
	}

	if b := fields.BMI; b != nil && (*b < minBMI || *b > maxBMI) {
		result.Warnings = append(result.Warnings, models.ValidationWarning{
			Field:   "bmi",
			Code:    "bmi_out_of_range",
			Message: fmt.Sprintf("IMC %.1f fuera del rango plausible [%.0f, %.0f]", *b, minBMI, maxBMI),
		})
	}

	if p := fields.FatPercentage; p != nil && (*p < minFatPercentage || *p > maxFatPercentage) {
		result.Warnings = append(result.Warnings, models.ValidationWarning{
			Field:   "fat_percentage",
			Code:    "fat_percentage_out_of_range",
			Message: fmt.Sprintf("Porcentaje de grasa %.1f%% fuera del rango plausible [%.0f, %.0f]", *p, minFatPercentage, maxFatPercentage),
		})
	}

	// Muscle mass exceeding total weight is physically impossible: this is
	// the one hard error, it blocks automatic save.
	if m, w := fields.MuscleMassKg, fields.WeightKg; m != nil && w != nil && *m > *w {
		result.Errors = append(result.Errors, models.ValidationError{
			Field:   "muscle_mass_kg",
			Code:    "muscle_exceeds_weight",
			Message: fmt.Sprintf("Masa muscular %.1f kg mayor que el peso total %.1f kg", *m, *w),
		})
	}

	result.Valid = len(result.Errors) == 0
	return result
}
