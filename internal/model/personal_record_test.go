package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValueDispatch(t *testing.T) {
	weight := 100.0
	reps := 12
	volume := 1200.0
	oneRepMax := 140.0
	duration := 1800
	distance := 5000.0

	record := PersonalRecord{
		Weight:          &weight,
		Reps:            &reps,
		Volume:          &volume,
		OneRepMax:       &oneRepMax,
		DurationSeconds: &duration,
		DistanceMeters:  &distance,
	}

	tests := []struct {
		recordType RecordType
		expected   float64
	}{
		{RecordMaxWeight, 100},
		{RecordMaxReps, 12},
		{RecordMaxVolume, 1200},
		{RecordOneRepMax, 140},
		{RecordMaxDuration, 1800},
		{RecordMaxDistance, 5000},
	}

	for _, tt := range tests {
		t.Run(string(tt.recordType), func(t *testing.T) {
			record.RecordType = tt.recordType
			assert.Equal(t, tt.expected, record.Value())
		})
	}
}

func TestRecordValue_MissingFieldIsZero(t *testing.T) {
	record := PersonalRecord{RecordType: RecordMaxWeight}
	assert.Zero(t, record.Value())

	record.RecordType = "max_style"
	assert.Zero(t, record.Value())
}

func TestFieldFor(t *testing.T) {
	for _, rt := range RecordTypes() {
		f, ok := FieldFor(rt)
		require.True(t, ok, "every declared type must dispatch")
		assert.NotEmpty(t, f.Column)
		assert.NotNil(t, f.Value)
	}

	_, ok := FieldFor("max_style")
	assert.False(t, ok)
}

func TestSetVolume(t *testing.T) {
	weight := 80.0
	reps := 10

	set := ExerciseSet{Weight: &weight, Reps: &reps}
	assert.Equal(t, 800.0, set.Volume())

	set.Reps = nil
	assert.Zero(t, set.Volume(), "missing factor counts as zero")
}
