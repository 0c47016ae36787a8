package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReadout = `InBody
Usuario: Maria
08.09.2025 16:41
Peso 82.3 kg
Masa muscular 55.2 kg
Grasa corporal 35.5 kg
Porcentaje de grasa corporal 33.8 %
IMC 27.1 kg/m2
Grasa visceral 12.5
Agua corporal 45.8
Metabolismo basal 1650 kcal
Puntuacion 78 puntos`

func TestExtract_FullReadout(t *testing.T) {
	fields := Extract(sampleReadout)

	require.NotNil(t, fields.WeightKg)
	assert.Equal(t, 82.3, *fields.WeightKg)

	require.NotNil(t, fields.MuscleMassKg)
	assert.Equal(t, 55.2, *fields.MuscleMassKg)

	require.NotNil(t, fields.FatMassKg)
	assert.Equal(t, 35.5, *fields.FatMassKg)

	require.NotNil(t, fields.FatPercentage)
	assert.Equal(t, 33.8, *fields.FatPercentage)

	require.NotNil(t, fields.BMI)
	assert.Equal(t, 27.1, *fields.BMI)

	require.NotNil(t, fields.BodyScore)
	assert.Equal(t, 78, *fields.BodyScore)

	require.NotNil(t, fields.VisceralFat)
	assert.Equal(t, 12.5, *fields.VisceralFat)

	require.NotNil(t, fields.BodyWater)
	assert.Equal(t, 45.8, *fields.BodyWater)

	require.NotNil(t, fields.BasalMetabolismKcal)
	assert.Equal(t, 1650, *fields.BasalMetabolismKcal)

	require.NotNil(t, fields.SubjectName)
	assert.Equal(t, "Maria", *fields.SubjectName)

	assert.Equal(t, sampleReadout, fields.RawText)
}

// The kg and % variants of the fat label must never contaminate each other,
// regardless of which one appears first in the text.
func TestExtract_FatMassVsFatPercentage(t *testing.T) {
	fields := Extract("Grasa corporal 35.5 kg\nPorcentaje de grasa corporal 33.8 %")
	require.NotNil(t, fields.FatMassKg)
	require.NotNil(t, fields.FatPercentage)
	assert.Equal(t, 35.5, *fields.FatMassKg)
	assert.Equal(t, 33.8, *fields.FatPercentage)

	reversed := Extract("Porcentaje de grasa corporal 33.8 %\nGrasa corporal 35.5 kg")
	require.NotNil(t, reversed.FatMassKg)
	require.NotNil(t, reversed.FatPercentage)
	assert.Equal(t, 35.5, *reversed.FatMassKg)
	assert.Equal(t, 33.8, *reversed.FatPercentage)
}

func TestExtract_WeightBareFallback(t *testing.T) {
	// No "Peso" label: the first unowned kg number is the weight.
	fields := Extract("Masa muscular 55.2 kg\n82.3 kg\nIMC 27.1 kg/m2")
	require.NotNil(t, fields.WeightKg)
	assert.Equal(t, 82.3, *fields.WeightKg)
	require.NotNil(t, fields.MuscleMassKg)
	assert.Equal(t, 55.2, *fields.MuscleMassKg)
}

func TestExtract_WeightLabeledPreferred(t *testing.T) {
	fields := Extract("60.0 kg de equipaje\nPeso 82.3 kg")
	require.NotNil(t, fields.WeightKg)
	assert.Equal(t, 82.3, *fields.WeightKg)
}

func TestExtract_Timestamp(t *testing.T) {
	fields := Extract("08.09.2025 16:41")
	require.NotNil(t, fields.MeasurementTimestamp)
	assert.Equal(t, "2025-09-08 16:41:00", *fields.MeasurementTimestamp)
}

func TestExtract_TimestampImplausibleDate(t *testing.T) {
	fields := Extract("45.13.2025 16:41")
	assert.Nil(t, fields.MeasurementTimestamp)
}

func TestExtract_BMITruncatedUnit(t *testing.T) {
	// OCR often drops the superscript in kg/m2
	fields := Extract("IMC 27.1 kg/m")
	require.NotNil(t, fields.BMI)
	assert.Equal(t, 27.1, *fields.BMI)
}

func TestExtract_AccentedSubjectName(t *testing.T) {
	fields := Extract("Usuario: Andrés")
	require.NotNil(t, fields.SubjectName)
	assert.Equal(t, "Andrés", *fields.SubjectName)
}

func TestExtract_NoMatchesLeavesFieldsAbsent(t *testing.T) {
	fields := Extract("texto sin ningun dato util")

	assert.Nil(t, fields.WeightKg)
	assert.Nil(t, fields.MuscleMassKg)
	assert.Nil(t, fields.FatMassKg)
	assert.Nil(t, fields.FatPercentage)
	assert.Nil(t, fields.BMI)
	assert.Nil(t, fields.BodyScore)
	assert.Nil(t, fields.MeasurementTimestamp)
	assert.Nil(t, fields.SubjectName)
	assert.Nil(t, fields.VisceralFat)
	assert.Nil(t, fields.BodyWater)
	assert.Nil(t, fields.BasalMetabolismKcal)
}

func TestExtract_Deterministic(t *testing.T) {
	first := Extract(sampleReadout)
	second := Extract(sampleReadout)
	assert.Equal(t, first, second)
}

func TestExtract_CaseInsensitiveLabels(t *testing.T) {
	fields := Extract("PESO 82.3 KG\nMASA MUSCULAR 55.2 KG")
	require.NotNil(t, fields.WeightKg)
	assert.Equal(t, 82.3, *fields.WeightKg)
	require.NotNil(t, fields.MuscleMassKg)
	assert.Equal(t, 55.2, *fields.MuscleMassKg)
}
