//go:build windows

package system

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"autologin/internal/apperr"
)

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

func (a AutoStart) install(exe string) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return apperr.New(apperr.KindSystem, "open run key", err)
	}
	defer k.Close()
	if err := k.SetStringValue(AppName, fmt.Sprintf("%q %s", exe, SilentArg)); err != nil {
		return apperr.New(apperr.KindSystem, "write run value", err)
	}
	return nil
}

func (a AutoStart) remove() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperr.New(apperr.KindSystem, "open run key", err)
	}
	defer k.Close()
	if err := k.DeleteValue(AppName); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return apperr.New(apperr.KindSystem, "delete run value", err)
	}
	return nil
}
