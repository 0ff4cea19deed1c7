//go:build !windows

package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoStartInstallAndRemove(t *testing.T) {
	dir := t.TempDir()
	a := AutoStart{Executable: "/opt/autologin/autologin", Dir: dir}

	require.NoError(t, a.Set(true))
	data, err := os.ReadFile(filepath.Join(dir, "autologin.desktop"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `Exec="/opt/autologin/autologin" silent`)

	require.NoError(t, a.Set(false))
	_, err = os.Stat(filepath.Join(dir, "autologin.desktop"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, a.Set(false), "removing a missing entry is fine")
}

func TestMachineKeyIsStable(t *testing.T) {
	a, err := MachineKey()
	require.NoError(t, err)
	b, err := MachineKey()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
}
