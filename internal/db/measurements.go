package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// Measurement is the persisted row shape for an InBody measurement.
// Nullable numeric columns mirror the extractor's optional fields: NULL in
// the database means "not extracted", never zero.
type Measurement struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	UserID    uuid.UUID `json:"user_id"`

	WeightKg            *float64 `json:"weight_kg"`
	MuscleMassKg        *float64 `json:"muscle_mass_kg"`
	FatMassKg           *float64 `json:"fat_mass_kg"`
	FatPercentage       *float64 `json:"fat_percentage"`
	BMI                 *float64 `json:"bmi"`
	BodyScore           *int     `json:"body_score"`
	VisceralFat         *float64 `json:"visceral_fat"`
	BodyWater           *float64 `json:"body_water"`
	BasalMetabolismKcal *int     `json:"basal_metabolism_kcal"`

	MeasuredAt   time.Time `json:"measured_at"`
	Observations string    `json:"observations"`
	Success      bool      `json:"success"`

	ImageURL   string  `json:"image_url"`
	OCRRaw     string  `json:"ocr_raw"`
	Confidence float64 `json:"confidence"`
	DeltasJSON string  `json:"deltas_json,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SaveMeasurement inserts a measurement row and fills in ID and CreatedAt
func SaveMeasurement(ctx context.Context, m *Measurement) error {
	query := `
		INSERT INTO mediciones (
			patient_id, user_id, weight_kg, muscle_mass_kg, fat_mass_kg,
			fat_percentage, bmi, body_score, visceral_fat, body_water,
			basal_metabolism_kcal, measured_at, observations, success,
			image_url, ocr_raw, confidence, deltas_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at
	`

	err := Pool.QueryRow(ctx, query,
		m.PatientID, m.UserID, m.WeightKg, m.MuscleMassKg, m.FatMassKg,
		m.FatPercentage, m.BMI, m.BodyScore, m.VisceralFat, m.BodyWater,
		m.BasalMetabolismKcal, m.MeasuredAt, m.Observations, m.Success,
		m.ImageURL, m.OCRRaw, m.Confidence, m.DeltasJSON,
	).Scan(&m.ID, &m.CreatedAt)

	return err
}

const measurementColumns = `
	id, patient_id, user_id, weight_kg, muscle_mass_kg, fat_mass_kg,
	fat_percentage, bmi, body_score, visceral_fat, body_water,
	basal_metabolism_kcal, measured_at, COALESCE(observations, ''),
	success, COALESCE(image_url, ''), COALESCE(ocr_raw, ''),
	COALESCE(confidence, 0), COALESCE(deltas_json, ''), created_at, updated_at
`

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var m Measurement
	err := row.Scan(
		&m.ID, &m.PatientID, &m.UserID, &m.WeightKg, &m.MuscleMassKg, &m.FatMassKg,
		&m.FatPercentage, &m.BMI, &m.BodyScore, &m.VisceralFat, &m.BodyWater,
		&m.BasalMetabolismKcal, &m.MeasuredAt, &m.Observations,
		&m.Success, &m.ImageURL, &m.OCRRaw,
		&m.Confidence, &m.DeltasJSON, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMeasurements returns the most recent measurements, optionally filtered
// by patient.
func GetMeasurements(ctx context.Context, patientID string, limit int) ([]Measurement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM mediciones
		WHERE ($1 = '' OR patient_id = $1::uuid)
		ORDER BY measured_at DESC
		LIMIT $2
	`, measurementColumns)

	rows, err := Pool.Query(ctx, query, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, *m)
	}

	return measurements, rows.Err()
}

// GetMeasurementByID retrieves a single measurement
func GetMeasurementByID(ctx context.Context, measurementID string) (*Measurement, error) {
	query := fmt.Sprintf(`SELECT %s FROM mediciones WHERE id = $1`, measurementColumns)
	return scanMeasurement(Pool.QueryRow(ctx, query, measurementID))
}

// GetLatestFields returns the most recent prior measurement for a patient in
// the extractor's field shape, for delta computation. A patient with no
// recorded measurements yields (nil, nil): explicit absence, not an error.
// excludeID skips one measurement, so reprocessing never compares a
// measurement against itself.
func GetLatestFields(ctx context.Context, patientID string, excludeID string) (*models.ExtractedFields, error) {
	query := `
		SELECT weight_kg, muscle_mass_kg, fat_mass_kg, fat_percentage, bmi,
		       body_score, visceral_fat, body_water, basal_metabolism_kcal
		FROM mediciones
		WHERE patient_id = $1::uuid
		  AND ($2 = '' OR id <> $2::uuid)
		ORDER BY measured_at DESC
		LIMIT 1
	`

	var f models.ExtractedFields
	err := Pool.QueryRow(ctx, query, patientID, excludeID).Scan(
		&f.WeightKg, &f.MuscleMassKg, &f.FatMassKg, &f.FatPercentage, &f.BMI,
		&f.BodyScore, &f.VisceralFat, &f.BodyWater, &f.BasalMetabolismKcal,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateMeasurement updates measurement fields from a filtered column map
func UpdateMeasurement(ctx context.Context, measurementID string, updates map[string]interface{}) error {
	sets := []string{}
	args := []interface{}{}
	i := 1
	for key, value := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", key, i))
		args = append(args, value)
		i++
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now())
	i++

	args = append(args, measurementID)

	query := fmt.Sprintf("UPDATE mediciones SET %s WHERE id = $%d",
		strings.Join(sets, ", "), i)

	_, err := Pool.Exec(ctx, query, args...)
	return err
}

// DeleteMeasurement removes a measurement
func DeleteMeasurement(ctx context.Context, measurementID string) error {
	_, err := Pool.Exec(ctx, "DELETE FROM mediciones WHERE id = $1", measurementID)
	return err
}

// MonthlyStats represents scan activity for the current month
type MonthlyStats struct {
	Month             string  `json:"month"`
	TotalMediciones   int     `json:"total_mediciones"`
	MedicionesValidas int     `json:"mediciones_validas"`
	ConfianzaPromedio float64 `json:"confianza_promedio"`
}

// GetMonthlyStats returns statistics for the current month
func GetMonthlyStats(ctx context.Context) (*MonthlyStats, error) {
	query := `
		SELECT
			COUNT(*) as total_mediciones,
			COUNT(*) FILTER (WHERE success) as mediciones_validas,
			COALESCE(AVG(confidence), 0) as confianza_promedio
		FROM mediciones
		WHERE DATE_TRUNC('month', created_at) = DATE_TRUNC('month', CURRENT_DATE)
	`

	stats := &MonthlyStats{
		Month: time.Now().Format("2006-01"),
	}

	err := Pool.QueryRow(ctx, query).Scan(
		&stats.TotalMediciones,
		&stats.MedicionesValidas,
		&stats.ConfianzaPromedio,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
