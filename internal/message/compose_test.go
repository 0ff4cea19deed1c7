package message

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autologin/internal/config"
	"autologin/internal/models"
)

func TestRenderCollapsesEmptyFields(t *testing.T) {
	fields := Fields{Campus: "已登录校园网", Elapsed: "用时1.23秒"}
	assert.Equal(t, "已登录校园网\n用时1.23秒", Render("%1 %2\n%3 %4", fields))
	assert.Equal(t, "已登录校园网 用时1.23秒", RenderLine("%1 %2\n%3 %4", fields))
}

func TestRenderIsIdempotent(t *testing.T) {
	fields := Fields{Campus: "登录成功", Wan: "已接入广域网", Elapsed: "用时0.50秒", Flow: "剩余流量 2.00 GB"}
	once := Render("  %1   %2 \n\n %3\t%4  ", fields)
	assert.Equal(t, "登录成功 已接入广域网\n用时0.50秒 剩余流量 2.00 GB", once)
	assert.Equal(t, once, Render(once, fields))
}

func TestRenderStaticTemplate(t *testing.T) {
	assert.Equal(t, "done", Render("done", Fields{Campus: "x"}))
	assert.Empty(t, Render("%2 %4", Fields{}))
}

func TestFieldsFor(t *testing.T) {
	flowMB := 100.0
	f := FieldsFor(models.CompositeResult{
		State:          models.StateLoginSucceeded,
		Wan:            models.WanConnected,
		ElapsedSeconds: 1.234,
		FlowMB:         &flowMB,
	})
	assert.Equal(t, Fields{Campus: "登录成功", Wan: "已接入广域网", Elapsed: "用时1.23秒", Flow: "剩余流量 100.00 MB"}, f)

	f = FieldsFor(models.CompositeResult{State: models.StateLoginRequestFailed, Wan: models.WanCheckSkipped, Detail: "连接超时"})
	assert.Equal(t, "登录请求失败: 连接超时", f.Campus)
	assert.Empty(t, f.Wan)
	assert.Empty(t, f.Flow)
}

func TestCompose(t *testing.T) {
	r := models.CompositeResult{State: models.StateNotConnected, Wan: models.WanDisconnected, ElapsedSeconds: 2}
	got := Compose(r, config.CampusMessages())
	assert.Equal(t, Rendered{
		Notify: "未登录校园网 未接入广域网\n用时2.00秒",
		GUI:    "未登录校园网 未接入广域网",
		Log:    "未登录校园网 未接入广域网 用时2.00秒",
	}, got)

	got = Compose(r, config.MessageConfig{NotifyText: "%1\n%3", LogText: "%1\n%3"})
	assert.Equal(t, "未登录校园网\n用时2.00秒", got.Notify)
	assert.Equal(t, "未登录校园网 用时2.00秒", got.Log)
	assert.Empty(t, got.GUI)
}
