package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	secret, prefix, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, APIKeyMarker))
	assert.Len(t, secret, len(APIKeyMarker)+APIKeyHexLength)
	assert.Equal(t, secret[:APIKeyPrefixLength], prefix)
	assert.True(t, IsValidAPIKeyFormat(secret))

	// Two keys never collide.
	other, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestIsValidAPIKeyFormat(t *testing.T) {
	secret, _, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, IsValidAPIKeyFormat(secret))
	assert.False(t, IsValidAPIKeyFormat(""))
	assert.False(t, IsValidAPIKeyFormat("vh_short"))
	assert.False(t, IsValidAPIKeyFormat(strings.TrimPrefix(secret, APIKeyMarker)))
	assert.False(t, IsValidAPIKeyFormat("kx_"+strings.TrimPrefix(secret, APIKeyMarker)))
	// Right length, not hex.
	assert.False(t, IsValidAPIKeyFormat(APIKeyMarker+strings.Repeat("z", APIKeyHexLength)))
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc123", ExtractBearerToken("Bearer abc123"))
	assert.Equal(t, "abc123", ExtractBearerToken("bearer abc123"))
	assert.Equal(t, "", ExtractBearerToken(""))
	assert.Equal(t, "", ExtractBearerToken("Basic abc123"))
	assert.Equal(t, "", ExtractBearerToken("Bearer "))
}

func TestHashAndVerifySecret(t *testing.T) {
	secret, _, err := GenerateAPIKey()
	require.NoError(t, err)

	hash, err := HashSecret(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, hash)

	assert.True(t, VerifySecret(secret, hash))
	assert.False(t, VerifySecret(secret+"x", hash))
	assert.False(t, VerifySecret(secret, "not-a-hash"))

	// Independent salts per call.
	again, err := HashSecret(secret)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
	assert.True(t, VerifySecret(secret, again))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("passw0rd"))
	assert.NoError(t, ValidatePassword("longer passphrase 42"))

	assert.Error(t, ValidatePassword("sh0rt"))
	assert.Error(t, ValidatePassword("12345678"))
	assert.Error(t, ValidatePassword("password"))
}
