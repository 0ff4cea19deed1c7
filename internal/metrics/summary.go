// Package metrics aggregates stored history into per-operation counters.
package metrics

import (
	"math"
	"sort"
	"time"

	"autologin/internal/models"
)

// OperationSummary counts outcomes of one kind of operation.
type OperationSummary struct {
	Event       string                `json:"event"`
	SuccessRate float64               `json:"success_rate"`
	Total       int                   `json:"total"`
	Succeeded   int                   `json:"succeeded"`
	Failed      int                   `json:"failed"`
	LastState   models.CompositeState `json:"last_state,omitempty"`
	LastUpdated string                `json:"last_updated,omitempty"`
}

// ComputeSummary groups entries by event and counts successes and failures.
// Entries that are neither (for example not_connected on a status check)
// count toward Total only.
func ComputeSummary(entries []models.HistoryEntry) []OperationSummary {
	type acc struct {
		total     int
		succeeded int
		failed    int
		lastState models.CompositeState
		lastTime  time.Time
	}
	state := make(map[string]*acc)
	for _, entry := range entries {
		target := state[entry.Event]
		if target == nil {
			target = &acc{}
			state[entry.Event] = target
		}
		target.total++
		switch {
		case entry.Result.State.Success():
			target.succeeded++
		case entry.Result.State.Failure():
			target.failed++
		}
		if !entry.Timestamp.Before(target.lastTime) {
			target.lastState = entry.Result.State
			target.lastTime = entry.Timestamp
		}
	}
	if len(state) == 0 {
		return nil
	}

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]OperationSummary, 0, len(keys))
	for _, event := range keys {
		data := state[event]
		rate := 0.0
		if data.total > 0 {
			rate = float64(data.succeeded) / float64(data.total) * 100
		}
		result := OperationSummary{
			Event:       event,
			SuccessRate: round2(rate),
			Total:       data.total,
			Succeeded:   data.succeeded,
			Failed:      data.failed,
			LastState:   data.lastState,
		}
		if !data.lastTime.IsZero() {
			result.LastUpdated = data.lastTime.UTC().Format(time.RFC3339)
		}
		results = append(results, result)
	}
	return results
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
