//go:build !windows

package system

import (
	"os"
	"strings"
)

var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

func machineID() (string, error) {
	var lastErr error
	for _, p := range machineIDPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", lastErr
}
