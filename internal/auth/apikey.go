package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// APIKeyMarker is the lead marker for all Varhold API keys.
	APIKeyMarker = "vh_"
	// APIKeyHexLength is the length of the random hex portion of a key.
	APIKeyHexLength = 64 // 32 bytes = 64 hex chars
	// APIKeyPrefixLength is how many leading characters of the secret are
	// stored in clear as a lookup index.
	APIKeyPrefixLength = 12
)

// GenerateAPIKey returns a new high-entropy API key secret and its
// lookup prefix. The secret is shown to the caller exactly once; only
// its hash may be persisted.
func GenerateAPIKey() (secret, prefix string, err error) {
	buf := make([]byte, APIKeyHexLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	secret = APIKeyMarker + hex.EncodeToString(buf)
	return secret, ExtractKeyPrefix(secret), nil
}

// ExtractKeyPrefix returns the non-secret lookup prefix of a key.
func ExtractKeyPrefix(secret string) string {
	if len(secret) < APIKeyPrefixLength {
		return secret
	}
	return secret[:APIKeyPrefixLength]
}

// IsValidAPIKeyFormat checks that a bearer value has the shape of a
// Varhold API key. Used to route authentication before any lookup.
func IsValidAPIKeyFormat(key string) bool {
	if !strings.HasPrefix(key, APIKeyMarker) {
		return false
	}
	hexPart := strings.TrimPrefix(key, APIKeyMarker)
	if len(hexPart) != APIKeyHexLength {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

// ExtractBearerToken extracts the token from an Authorization header value.
// Returns empty string if the header is not a valid Bearer token.
func ExtractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}
