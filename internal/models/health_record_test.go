package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBMI(t *testing.T) {
	height := 160.5
	weight := 52.3

	bmi := ComputeBMI(&height, &weight)
	require.NotNil(t, bmi)
	assert.Equal(t, 20.3, *bmi)

	assert.Nil(t, ComputeBMI(nil, &weight))
	assert.Nil(t, ComputeBMI(&height, nil))

	zero := 0.0
	assert.Nil(t, ComputeBMI(&zero, &weight))
}

func TestHealthRecordMarshalDerivesBMI(t *testing.T) {
	height := 170.0
	weight := 57.8
	record := HealthRecord{ID: "r-1", StudentID: "s-1", Year: 2025, Height: &height, Weight: &weight}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 20.0, decoded["bmi"])
}

func TestHealthRecordMarshalNullBMI(t *testing.T) {
	record := HealthRecord{ID: "r-1", StudentID: "s-1", Year: 2025}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	v, ok := decoded["bmi"]
	require.True(t, ok, "bmi attribute should always be present")
	assert.Nil(t, v)
}

func TestVisionGradeScore(t *testing.T) {
	assert.Equal(t, 4.0, VisionGradeA.Score())
	assert.Equal(t, 1.0, VisionGradeD.Score())
	assert.False(t, VisionGrade("E").Valid())
}
