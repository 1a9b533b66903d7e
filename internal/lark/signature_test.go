package lark

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenSignDeterministic(t *testing.T) {
	a, err := GenSign(1700000000, "secret", "")
	require.NoError(t, err)
	b, err := GenSign(1700000000, "secret", "")
	require.NoError(t, err)
	require.Equal(t, a, b)

	mac := hmac.New(sha256.New, []byte("1700000000\nsecret"))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	require.Equal(t, expected, a)
}

func TestGenSignVariesWithInputs(t *testing.T) {
	base, err := GenSign(1700000000, "secret", "")
	require.NoError(t, err)

	otherTS, err := GenSign(1700000001, "secret", "")
	require.NoError(t, err)
	otherSecret, err := GenSign(1700000000, "other", "")
	require.NoError(t, err)

	require.NotEqual(t, base, otherTS)
	require.NotEqual(t, base, otherSecret)
}

func TestCalculateSignature(t *testing.T) {
	// sha256("") is the well-known e3b0... digest
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		CalculateSignature("", "", "", ""),
	)

	sig := CalculateSignature("1700000000", "nonce", "key", `{"a":1}`)
	require.Len(t, sig, 64)
	require.True(t, VerifySignature(sig, "1700000000", "nonce", "key", `{"a":1}`))
	require.False(t, VerifySignature(sig, "1700000000", "nonce", "key", `{"a":2}`))
}
