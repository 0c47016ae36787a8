package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Absent fields must stay observable as absent: nil pointers disappear from
// the JSON instead of serializing as zero.
func TestExtractedFields_AbsentFieldsOmitted(t *testing.T) {
	weight := 82.3
	fields := ExtractedFields{
		WeightKg: &weight,
		RawText:  "Peso 82.3 kg",
	}

	data, err := json.Marshal(fields)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"weightKg":82.3`)
	assert.NotContains(t, string(data), "muscleMassKg")
	assert.NotContains(t, string(data), "bmi")
	assert.NotContains(t, string(data), "bodyScore")
}

func TestProcessResponse_ErrorShape(t *testing.T) {
	resp := ProcessResponse{
		Success:       false,
		Error:         "recognition engine: recognize: recognition timed out",
		TotalDuration: 1.5,
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"success":false`)
	assert.Contains(t, string(data), `"error":`)
	assert.NotContains(t, string(data), "measurement")
}

func TestDeltaSet_Serialization(t *testing.T) {
	deltas := DeltaSet{"weight_kg": -2.0, "fat_percentage": -1.3}

	data, err := json.Marshal(deltas)
	require.NoError(t, err)

	var decoded DeltaSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, deltas, decoded)
}
