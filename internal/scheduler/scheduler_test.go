package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New("every thirty minutes", func(context.Context) {}, nil)
	assert.Error(t, err)

	_, err = New("*/5 * * * * *", func(context.Context) {}, nil)
	assert.Error(t, err, "seconds field is not accepted")
}

func TestStartRunsImmediately(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1h", func(context.Context) { runs.Add(1) }, nil)
	require.NoError(t, err)

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, s.Next())

	s.Stop()
	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}

func TestStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan error, 1)
	s, err := New("@every 1h", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
	}, nil)
	require.NoError(t, err)

	s.Start()
	<-started
	s.Stop()

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}
}
