// Package system holds the platform-specific pieces: the machine identity
// used to bind stored secrets and the run-at-login registration.
package system

import (
	"os"
	"strings"

	"autologin/internal/apperr"
)

// MachineKey returns a stable identifier for this host. It prefers the
// platform machine id and falls back to the hostname.
func MachineKey() ([]byte, error) {
	if id, err := machineID(); err == nil && id != "" {
		return []byte(id), nil
	}
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return nil, apperr.New(apperr.KindSystem, "read machine identity", err)
	}
	return []byte("host:" + host), nil
}
