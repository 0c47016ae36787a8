package services

import (
	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// deltaFields enumerates the numeric fields eligible for delta computation.
// Percentage and absolute fields use the same subtraction rule.
var deltaFields = []struct {
	name string
	get  func(*models.ExtractedFields) *float64
}{
	{"weight_kg", func(f *models.ExtractedFields) *float64 { return f.WeightKg }},
	{"muscle_mass_kg", func(f *models.ExtractedFields) *float64 { return f.MuscleMassKg }},
	{"fat_mass_kg", func(f *models.ExtractedFields) *float64 { return f.FatMassKg }},
	{"fat_percentage", func(f *models.ExtractedFields) *float64 { return f.FatPercentage }},
	{"bmi", func(f *models.ExtractedFields) *float64 { return f.BMI }},
	{"visceral_fat", func(f *models.ExtractedFields) *float64 { return f.VisceralFat }},
	{"body_water", func(f *models.ExtractedFields) *float64 { return f.BodyWater }},
	{"body_score", intField(func(f *models.ExtractedFields) *int { return f.BodyScore })},
	{"basal_metabolism_kcal", intField(func(f *models.ExtractedFields) *int { return f.BasalMetabolismKcal })},
}

func intField(get func(*models.ExtractedFields) *int) func(*models.ExtractedFields) *float64 {
	return func(f *models.ExtractedFields) *float64 {
		n := get(f)
		if n == nil {
			return nil
		}
		v := float64(*n)
		return &v
	}
}

// ComputeDeltas compares the newly extracted fields against the subject's
// most recent prior measurement and returns signed differences
// (current - previous) per field.
//
// A nil previous means the subject's first measurement: the result is an
// empty set, not an error. Fields present on only one side are silently
// excluded; a delta is never fabricated by imputing zero.
func ComputeDeltas(current *models.ExtractedFields, previous *models.ExtractedFields) models.DeltaSet {
	deltas := models.DeltaSet{}
	if current == nil || previous == nil {
		return deltas
	}

	for _, f := range deltaFields {
		cur := f.get(current)
		prev := f.get(previous)
		if cur == nil || prev == nil {
			continue
		}
		deltas[f.name] = *cur - *prev
	}

	return deltas
}
