package secret

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autologin/internal/apperr"
)

func TestEncryptDecrypt(t *testing.T) {
	c, err := NewCipher([]byte("machine-a"))
	require.NoError(t, err)

	enc, err := c.Encrypt("Passw0rd!")
	require.NoError(t, err)
	assert.NotContains(t, enc, "Passw0rd!")

	again, err := c.Encrypt("Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonce must differ per call")

	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "Passw0rd!", plain)
}

func TestDecryptOnOtherMachineFails(t *testing.T) {
	a, err := NewCipher([]byte("machine-a"))
	require.NoError(t, err)
	b, err := NewCipher([]byte("machine-b"))
	require.NoError(t, err)

	enc, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	var de *apperr.DecryptionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, apperr.DefaultDecryptionMessage, err.Error())
	assert.NotEmpty(t, de.Internal)
}

func TestDecryptMalformed(t *testing.T) {
	c, err := NewCipher([]byte("machine-a"))
	require.NoError(t, err)

	for _, in := range []string{"%%%", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := c.Decrypt(in)
		var de *apperr.DecryptionError
		assert.True(t, errors.As(err, &de), in)
	}
}

func TestEmptyMachineKey(t *testing.T) {
	_, err := NewCipher(nil)
	assert.True(t, apperr.Is(err, apperr.KindCrypto))
}
