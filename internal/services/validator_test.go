package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestValidate_CleanFields(t *testing.T) {
	v := NewValidator()
	result := v.Validate(&models.ExtractedFields{
		WeightKg:      fptr(82.3),
		MuscleMassKg:  fptr(55.2),
		BMI:           fptr(27.1),
		FatPercentage: fptr(33.8),
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_OutOfRangeWarnsButStaysValid(t *testing.T) {
	v := NewValidator()
	result := v.Validate(&models.ExtractedFields{
		WeightKg:      fptr(15.0),
		BMI:           fptr(75.0),
		FatPercentage: fptr(2.0),
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 3)

	codes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "weight_out_of_range")
	assert.Contains(t, codes, "bmi_out_of_range")
	assert.Contains(t, codes, "fat_percentage_out_of_range")
}

func TestValidate_MuscleExceedsWeightIsHardError(t *testing.T) {
	v := NewValidator()
	result := v.Validate(&models.ExtractedFields{
		WeightKg:     fptr(70.0),
		MuscleMassKg: fptr(80.0),
	})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "muscle_exceeds_weight", result.Errors[0].Code)
	assert.Equal(t, "muscle_mass_kg", result.Errors[0].Field)
}

func TestValidate_AbsentFieldsNotChecked(t *testing.T) {
	v := NewValidator()
	result := v.Validate(&models.ExtractedFields{})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidate_MuscleCheckNeedsBothFields(t *testing.T) {
	v := NewValidator()

	// Muscle present but weight absent: no cross-field check possible
	result := v.Validate(&models.ExtractedFields{MuscleMassKg: fptr(80.0)})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_BoundaryValuesAreInRange(t *testing.T) {
	v := NewValidator()
	result := v.Validate(&models.ExtractedFields{
		WeightKg:      fptr(30.0),
		BMI:           fptr(60.0),
		FatPercentage: fptr(5.0),
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}
