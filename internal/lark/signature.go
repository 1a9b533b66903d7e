package lark

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
)

// Request headers Lark attaches to signed event callbacks.
const (
	HeaderRequestTimestamp = "X-Lark-Request-Timestamp"
	HeaderRequestNonce     = "X-Lark-Request-Nonce"
	HeaderSignature        = "X-Lark-Signature"
)

// CalculateSignature returns the hex SHA-256 of timestamp+nonce+encryptKey+body,
// the value Lark sends in X-Lark-Signature.
func CalculateSignature(timestamp, nonce, encryptKey, body string) string {
	sum := sha256.Sum256([]byte(timestamp + nonce + encryptKey + body))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares an X-Lark-Signature value in constant time.
func VerifySignature(signature, timestamp, nonce, encryptKey, body string) bool {
	expected := CalculateSignature(timestamp, nonce, encryptKey, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenSign computes the custom-bot signature: HMAC-SHA256 keyed by
// "<timestamp>\n<secret>" over body (empty for webhooks), base64 encoded.
func GenSign(timestamp int64, secret, body string) (string, error) {
	key := strconv.FormatInt(timestamp, 10) + "\n" + secret
	mac := hmac.New(sha256.New, []byte(key))
	if _, err := mac.Write([]byte(body)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
