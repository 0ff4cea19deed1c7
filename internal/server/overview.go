package server

import (
	"net/http"
	"strings"
	"time"

	"autologin/internal/models"
)

const (
	overviewBucketMinutes = 60
	overviewBucketCount   = 24
	overviewStateUnknown  = "unknown"
	overviewStateOK       = "ok"
	overviewStateIssue    = "issue"
)

type overviewSnapshot struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	RangeStart    time.Time        `json:"range_start"`
	RangeEnd      time.Time        `json:"range_end"`
	BucketSeconds int              `json:"bucket_seconds"`
	Buckets       []overviewBucket `json:"buckets"`
}

type overviewBucket struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
}

type timeBucket struct {
	Start time.Time
	End   time.Time
}

// handleOverview buckets the last day of results by hour. A bucket is an
// issue if any result in it failed.
func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildOverviewSnapshot(time.Now().UTC()))
}

func (s *Server) buildOverviewSnapshot(now time.Time) overviewSnapshot {
	bucketDuration := time.Duration(overviewBucketMinutes) * time.Minute
	rangeStart := now.Add(-bucketDuration * overviewBucketCount)
	buckets := buildTimeBuckets(rangeStart, bucketDuration, overviewBucketCount)

	return overviewSnapshot{
		GeneratedAt:   now,
		RangeStart:    rangeStart,
		RangeEnd:      now,
		BucketSeconds: int(bucketDuration / time.Second),
		Buckets:       buildResultBuckets(buckets, s.recentHistory(0)),
	}
}

func buildTimeBuckets(start time.Time, duration time.Duration, count int) []timeBucket {
	result := make([]timeBucket, 0, count)
	current := start
	for i := 0; i < count; i++ {
		end := current.Add(duration)
		result = append(result, timeBucket{Start: current, End: end})
		current = end
	}
	return result
}

func bucketIndex(ts time.Time, buckets []timeBucket) int {
	if len(buckets) == 0 {
		return -1
	}
	last := buckets[len(buckets)-1]
	if ts.Equal(last.End) {
		return len(buckets) - 1
	}
	if ts.Before(buckets[0].Start) || ts.After(last.End) {
		return -1
	}
	for i, bucket := range buckets {
		if !ts.Before(bucket.Start) && ts.Before(bucket.End) {
			return i
		}
	}
	return -1
}

func buildResultBuckets(buckets []timeBucket, history []models.HistoryEntry) []overviewBucket {
	result := make([]overviewBucket, len(buckets))
	for i, bucket := range buckets {
		result[i] = overviewBucket{Start: bucket.Start, End: bucket.End, State: overviewStateUnknown}
	}
	for _, entry := range history {
		idx := bucketIndex(entry.Timestamp.UTC(), buckets)
		if idx == -1 {
			continue
		}
		if entry.Result.State.Failure() {
			detail := strings.TrimSpace(entry.Message)
			if detail == "" {
				detail = string(entry.Result.State)
			}
			setBucketIssue(&result[idx], detail)
			continue
		}
		setBucketOK(&result[idx], string(entry.Result.State))
	}
	return result
}

func setBucketOK(bucket *overviewBucket, detail string) {
	if bucket.State == overviewStateIssue {
		return
	}
	bucket.State = overviewStateOK
	if detail != "" {
		bucket.Detail = detail
	}
}

func setBucketIssue(bucket *overviewBucket, detail string) {
	bucket.State = overviewStateIssue
	if detail != "" {
		bucket.Detail = detail
	}
}
