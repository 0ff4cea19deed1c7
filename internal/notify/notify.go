// Package notify shows desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"

	"autologin/internal/apperr"
)

// Title is used for every status notification.
const Title = "当前网络状态"

// Notifier displays one message to the user.
type Notifier interface {
	Notify(title, message string) error
}

// Desktop uses the platform notification service.
type Desktop struct {
	// Icon is an optional path to an icon file.
	Icon string
}

// Notify implements Notifier.
func (d Desktop) Notify(title, message string) error {
	if err := beeep.Notify(title, message, d.Icon); err != nil {
		return apperr.New(apperr.KindNotification, "show notification", err)
	}
	return nil
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(string, string) error { return nil }
