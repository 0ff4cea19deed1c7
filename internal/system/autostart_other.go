//go:build !windows

package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"autologin/internal/apperr"
)

func (a AutoStart) entryPath() (string, error) {
	dir := a.Dir
	if dir == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return "", apperr.New(apperr.KindSystem, "locate config dir", err)
		}
		dir = filepath.Join(cfgDir, "autostart")
	}
	return filepath.Join(dir, "autologin.desktop"), nil
}

func (a AutoStart) install(exe string) error {
	path, err := a.entryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.New(apperr.KindSystem, "create autostart dir", err)
	}
	entry := fmt.Sprintf("[Desktop Entry]\nType=Application\nName=%s\nExec=%q %s\nX-GNOME-Autostart-enabled=true\n", AppName, exe, SilentArg)
	if err := os.WriteFile(path, []byte(entry), 0o644); err != nil {
		return apperr.New(apperr.KindSystem, "write autostart entry", err)
	}
	return nil
}

func (a AutoStart) remove() error {
	path, err := a.entryPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.New(apperr.KindSystem, "remove autostart entry", err)
	}
	return nil
}
