package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscard(t *testing.T) {
	var n Notifier = Discard{}
	assert.NoError(t, n.Notify(Title, "已登录校园网"))
}
