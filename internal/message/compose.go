// Package message turns composite results into the notification, UI and
// log texts configured by the user.
package message

import (
	"fmt"
	"strings"

	"autologin/internal/config"
	"autologin/internal/flow"
	"autologin/internal/models"
)

// Fields are the texts substituted for %1..%4.
type Fields struct {
	Campus  string
	Wan     string
	Elapsed string
	Flow    string
}

// Rendered holds one message per output channel.
type Rendered struct {
	Notify string `json:"notify"`
	GUI    string `json:"gui"`
	Log    string `json:"log"`
}

var stateText = map[models.CompositeState]string{
	models.StateAlreadyConnected:   "已登录校园网",
	models.StateNotConnected:       "未登录校园网",
	models.StatePortalUnreachable:  "无法连接校园网认证页面",
	models.StateLoginSucceeded:     "登录成功",
	models.StateLoginRejected:      "登录失败！请检查账号、密码或运营商",
	models.StateLoginAmbiguous:     "登录失败，未知错误",
	models.StateLoginRequestFailed: "登录请求失败",
	models.StateConfigIncomplete:   "配置不完整，请先填写账号和密码",
	models.StateDecryptFailed:      "密码解密失败，请重新输入密码",
}

var wanText = map[models.WanStatus]string{
	models.WanConnected:    "已接入广域网",
	models.WanDisconnected: "未接入广域网",
	models.WanCheckSkipped: "",
}

// CampusText is the %1 text for a result.
func CampusText(r models.CompositeResult) string {
	text, ok := stateText[r.State]
	if !ok {
		text = string(r.State)
	}
	if r.Detail != "" {
		text += ": " + r.Detail
	}
	return text
}

// FieldsFor derives the placeholder texts from a result.
func FieldsFor(r models.CompositeResult) Fields {
	f := Fields{
		Campus:  CampusText(r),
		Wan:     wanText[r.Wan],
		Elapsed: fmt.Sprintf("用时%.2f秒", r.ElapsedSeconds),
	}
	if r.FlowMB != nil {
		f.Flow = flow.Format(*r.FlowMB)
	}
	return f
}

// Compose renders all three templates for a result.
func Compose(r models.CompositeResult, templates config.MessageConfig) Rendered {
	fields := FieldsFor(r)
	return Rendered{
		Notify: Render(templates.NotifyText, fields),
		GUI:    Render(templates.GUIText, fields),
		Log:    RenderLine(templates.LogText, fields),
	}
}

// Render substitutes the placeholders, collapses repeated whitespace inside
// each line, drops blank lines and trims the result. Newlines between
// non-empty lines are kept. Rendering an already rendered text is a no-op.
func Render(template string, f Fields) string {
	text := strings.NewReplacer(
		"%1", f.Campus,
		"%2", f.Wan,
		"%3", f.Elapsed,
		"%4", f.Flow,
	).Replace(template)

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// RenderLine renders a template for the activity log, which is one line per
// entry.
func RenderLine(template string, f Fields) string {
	return Flatten(Render(template, f))
}

// Flatten replaces line breaks with single spaces.
func Flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
