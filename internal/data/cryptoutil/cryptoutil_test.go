package cryptoutil

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xA7}, 32)
}

func TestAESGCMRoundTrip(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	token := []byte("hook-bearer-token-123")
	sealed, err := enc.Encrypt(token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1:"))
	assert.NotContains(t, sealed, string(token))

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, token, opened)

	// A second seal of the same plaintext uses a fresh nonce.
	sealed2, err := enc.Encrypt(token)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, sealed2)
}

func TestAESGCMReadsNoopValues(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	sealed, err := NoopEncryptor{}.Encrypt([]byte("pre-key token"))
	require.NoError(t, err)

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("pre-key token"), opened)
}

func TestAESGCMKeySize(t *testing.T) {
	_, err := NewAESGCMEncryptor([]byte("short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestAESGCMRejectsBadCiphertext(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey())
	require.NoError(t, err)

	_, err = enc.Decrypt("v9:AAAA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ciphertext version")

	_, err = enc.Decrypt("v1:!!!not-base64!!!")
	require.Error(t, err)

	_, err = enc.Decrypt("v1:" + base64.StdEncoding.EncodeToString([]byte("xx")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ciphertext too short")

	// Valid length but garbage bytes must fail authentication.
	_, err = enc.Decrypt("v1:" + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 40)))
	require.Error(t, err)
}

func TestNoopEncryptor(t *testing.T) {
	sealed, err := NoopEncryptor{}.Encrypt([]byte("plain"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "noop:"))

	opened, err := NoopEncryptor{}.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), opened)

	_, err = NoopEncryptor{}.Decrypt("v1:whatever")
	require.Error(t, err)
}
