package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC of the request body
const SignatureHeader = "X-Odoo-Signature"

// DeriveOrgSecret derives the per-organization signing key from the master
// secret so receivers only ever hold their own key.
func DeriveOrgSecret(masterSecret, organizationID string) string {
	return hexHMAC([]byte(masterSecret), []byte(organizationID))
}

// Sign returns the hex HMAC-SHA256 of payload under orgSecret
func Sign(orgSecret string, payload []byte) string {
	return hexHMAC([]byte(orgSecret), payload)
}

// Verify checks signature in constant time
func Verify(orgSecret string, payload []byte, signature string) bool {
	expected, err := hex.DecodeString(Sign(orgSecret, payload))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

func hexHMAC(key, msg []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
