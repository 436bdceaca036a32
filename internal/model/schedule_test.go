package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_JSON(t *testing.T) {
	t.Run("run times exposed as timestamps", func(t *testing.T) {
		lastRun := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		nextRun := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
		schedule := Schedule{
			ID:      1,
			Name:    "morning scan",
			LastRun: &lastRun,
			NextRun: &nextRun,
		}

		raw, err := json.Marshal(schedule)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))

		assert.Equal(t, "2024-01-01T09:00:00Z", decoded["last_run"])
		assert.Equal(t, "2024-01-02T09:00:00Z", decoded["next_run"])
	})

	t.Run("unset run times marshal as null", func(t *testing.T) {
		raw, err := json.Marshal(Schedule{ID: 2, Name: "paused scan"})
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &decoded))

		assert.Nil(t, decoded["last_run"])
		assert.Nil(t, decoded["next_run"])
	})
}

func TestScheduleRun_JSON(t *testing.T) {
	completedAt := time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)
	message := "upstream timeout"
	run := ScheduleRun{
		ID:           1,
		ScheduleID:   1,
		Trigger:      RunTriggerManual,
		Status:       RunStatusFailed,
		StartedAt:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		CompletedAt:  &completedAt,
		ErrorMessage: &message,
	}

	raw, err := json.Marshal(run)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "2024-01-01T09:05:00Z", decoded["completed_at"])
	assert.Equal(t, "upstream timeout", decoded["error_message"])

	// A run that has not finished carries no completion fields.
	raw, err = json.Marshal(ScheduleRun{ID: 2, Status: RunStatusRunning})
	require.NoError(t, err)
	var pending map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &pending))
	assert.Nil(t, pending["completed_at"])
	assert.NotContains(t, pending, "error_message")
}
