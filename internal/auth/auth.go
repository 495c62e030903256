// Package auth resolves bearer tokens from the HTTP Authorization header:
// a constant-time compare against a configured admin secret, or a
// sha256-hash lookup against the in-memory broker index.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const bearerPrefix = "Bearer "

// HashAPIKey returns the hex-encoded sha256 hash of a raw broker API key,
// the form both registration and lookup index on.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the token from an Authorization header value,
// returning ok=false if the header is missing or malformed.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// IsAdmin reports whether token matches secret in constant time.
func IsAdmin(token, secret string) bool {
	if token == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
