package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autologin/internal/models"
)

func TestComputeSummary(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []models.HistoryEntry{
		{Timestamp: base, Event: "silent_login", Result: models.CompositeResult{State: models.StateLoginSucceeded}},
		{Timestamp: base.Add(time.Minute), Event: "silent_login", Result: models.CompositeResult{State: models.StateLoginRejected}},
		{Timestamp: base.Add(2 * time.Minute), Event: "silent_login", Result: models.CompositeResult{State: models.StateAlreadyConnected}},
		{Timestamp: base.Add(3 * time.Minute), Event: "status", Result: models.CompositeResult{State: models.StateNotConnected}},
	}

	got := ComputeSummary(entries)
	require.Len(t, got, 2)

	silent := got[0]
	assert.Equal(t, "silent_login", silent.Event)
	assert.Equal(t, 3, silent.Total)
	assert.Equal(t, 2, silent.Succeeded)
	assert.Equal(t, 1, silent.Failed)
	assert.Equal(t, 66.67, silent.SuccessRate)
	assert.Equal(t, models.StateAlreadyConnected, silent.LastState)
	assert.Equal(t, "2025-05-01T10:02:00Z", silent.LastUpdated)

	status := got[1]
	assert.Equal(t, 1, status.Total)
	assert.Equal(t, 0, status.Failed)
	assert.Equal(t, 0.0, status.SuccessRate)
}

func TestComputeSummaryEmpty(t *testing.T) {
	assert.Nil(t, ComputeSummary(nil))
}
