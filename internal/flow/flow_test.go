package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "流量耗尽，限速不限量生效", Format(0))
	assert.Equal(t, "剩余流量 512.50 MB", Format(512.5))
	assert.Equal(t, "剩余流量 2.00 GB", Format(2048))
}

func TestSourceFunc(t *testing.T) {
	src := SourceFunc(func(_ context.Context, user, _ string) (float64, error) {
		assert.Equal(t, "2100000001", user)
		return 42, nil
	})
	mb, err := src.RemainingMB(context.Background(), "2100000001", "pw")
	require.NoError(t, err)
	assert.Equal(t, 42.0, mb)
}
