package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

func TestComputeDeltas_FirstMeasurement(t *testing.T) {
	current := &models.ExtractedFields{WeightKg: fptr(82.3)}

	deltas := ComputeDeltas(current, nil)
	require.NotNil(t, deltas)
	assert.Empty(t, deltas)
}

func TestComputeDeltas_SignedDifferences(t *testing.T) {
	current := &models.ExtractedFields{
		WeightKg:      fptr(80.0),
		FatPercentage: fptr(32.5),
		BodyScore:     iptr(80),
	}
	previous := &models.ExtractedFields{
		WeightKg:      fptr(82.0),
		FatPercentage: fptr(33.8),
		BodyScore:     iptr(78),
	}

	deltas := ComputeDeltas(current, previous)

	require.Contains(t, deltas, "weight_kg")
	assert.InDelta(t, -2.0, deltas["weight_kg"], 1e-9)
	require.Contains(t, deltas, "fat_percentage")
	assert.InDelta(t, -1.3, deltas["fat_percentage"], 1e-9)
	require.Contains(t, deltas, "body_score")
	assert.InDelta(t, 2.0, deltas["body_score"], 1e-9)
}

func TestComputeDeltas_OneSidedFieldsExcluded(t *testing.T) {
	current := &models.ExtractedFields{
		WeightKg: fptr(80.0),
		BMI:      fptr(26.4),
	}
	previous := &models.ExtractedFields{
		WeightKg:     fptr(82.0),
		MuscleMassKg: fptr(55.2),
	}

	deltas := ComputeDeltas(current, previous)

	assert.Contains(t, deltas, "weight_kg")
	assert.NotContains(t, deltas, "bmi")
	assert.NotContains(t, deltas, "muscle_mass_kg")
	assert.Len(t, deltas, 1)
}

func TestComputeDeltas_IntFields(t *testing.T) {
	current := &models.ExtractedFields{BasalMetabolismKcal: iptr(1700)}
	previous := &models.ExtractedFields{BasalMetabolismKcal: iptr(1650)}

	deltas := ComputeDeltas(current, previous)

	require.Contains(t, deltas, "basal_metabolism_kcal")
	assert.InDelta(t, 50.0, deltas["basal_metabolism_kcal"], 1e-9)
}
