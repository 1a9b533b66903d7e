package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptCBC(t *testing.T) {
	payload := []byte(`{"challenge":"abc","token":"verify","type":"url_verification"}`)

	ciphertext, err := EncryptCBC(payload, "encrypt-key")
	require.NoError(t, err)

	plain, err := DecryptCBC(ciphertext, "encrypt-key")
	require.NoError(t, err)
	require.Equal(t, payload, plain)
}

func TestEncryptCBCUsesRandomIV(t *testing.T) {
	a, err := EncryptCBC([]byte("same"), "k")
	require.NoError(t, err)
	b, err := EncryptCBC([]byte("same"), "k")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecryptCBCWrongKey(t *testing.T) {
	ciphertext, err := EncryptCBC([]byte("hello lark"), "right")
	require.NoError(t, err)

	plain, err := DecryptCBC(ciphertext, "wrong")
	if err == nil {
		require.NotEqual(t, []byte("hello lark"), plain)
	}
}

func TestDecryptCBCRejectsMalformedInput(t *testing.T) {
	_, err := DecryptCBC("%%%not-base64", "k")
	require.Error(t, err)

	_, err = DecryptCBC(base64.StdEncoding.EncodeToString([]byte("short")), "k")
	require.Error(t, err)
}

func TestDeriveKeyLength(t *testing.T) {
	require.Len(t, DeriveKey("anything"), 32)
}
