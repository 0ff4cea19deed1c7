package system

import (
	"os"
	"path/filepath"

	"autologin/internal/apperr"
)

// AppName names the autostart entry.
const AppName = "AutoLogin"

// SilentArg is passed to the executable when it is started at login.
const SilentArg = "silent"

// AutoStart registers the executable to run silently at user login.
type AutoStart struct {
	// Executable defaults to the running binary.
	Executable string
	// Dir overrides the platform location of the entry. Only used off Windows.
	Dir string
}

func (a AutoStart) executable() (string, error) {
	if a.Executable != "" {
		return a.Executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", apperr.New(apperr.KindSystem, "locate executable", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// Set enables or disables the entry. Disabling an absent entry is not an error.
func (a AutoStart) Set(enabled bool) error {
	if !enabled {
		return a.remove()
	}
	exe, err := a.executable()
	if err != nil {
		return err
	}
	return a.install(exe)
}
