package trello

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
)

const SignatureHeader = "X-Trello-Webhook"

// Sign calcula a assinatura do callback: base64(HMAC-SHA1(secret, body + callbackURL)).
func Sign(secret, callbackURL string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte(callbackURL))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret, callbackURL string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, callbackURL, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
