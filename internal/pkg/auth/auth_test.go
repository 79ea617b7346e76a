// internal/pkg/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/commerce-api/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "commerce-api-test"
	cfg.JWT.Secret = "test-secret-at-least-32-characters-long"
	cfg.JWT.AccessTokenExpiry = 15 * time.Minute
	cfg.JWT.RefreshTokenExpiry = 7 * 24 * time.Hour
	cfg.Security.BcryptCost = bcrypt.MinCost
	return cfg
}

func TestAccessTokenRoundTrip(t *testing.T) {
	j := NewJWTManager(testConfig())

	token, err := j.GenerateAccessToken(42, "pat@example.com", true)
	require.NoError(t, err)

	claims, err := j.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "pat@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "access", claims.TokenType)
}

func TestTokenTypeEnforced(t *testing.T) {
	j := NewJWTManager(testConfig())

	refresh, err := j.GenerateRefreshToken(42, "pat@example.com")
	require.NoError(t, err)

	_, err = j.ValidateAccessToken(refresh)
	require.Error(t, err, "refresh token must not pass as access token")

	claims, err := j.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin, "admin flag never carried on refresh tokens")

	access, err := j.GenerateAccessToken(42, "pat@example.com", false)
	require.NoError(t, err)
	_, err = j.ValidateRefreshToken(access)
	require.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	j := NewJWTManager(testConfig())
	token, err := j.GenerateAccessToken(1, "pat@example.com", false)
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "a-completely-different-signing-secret!!"
	_, err = NewJWTManager(other).ValidateToken(token)
	require.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader("abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader(""))
	assert.Empty(t, ExtractTokenFromHeader("Bearer "))
}

func TestHashAndVerifyPassword(t *testing.T) {
	p := NewPasswordManager(testConfig())

	hash, err := p.HashPassword("Str0ng&Secure!")
	require.NoError(t, err)
	require.NotEqual(t, "Str0ng&Secure!", hash)

	require.NoError(t, p.VerifyPassword("Str0ng&Secure!", hash))
	require.Error(t, p.VerifyPassword("wrong-password", hash))
}

func TestValidatePassword(t *testing.T) {
	p := NewPasswordManager(testConfig())

	require.NoError(t, p.ValidatePassword("Str0ng&Secure!"))

	weak := []string{
		"short1!",          // too short
		"alllowercase9!",   // no uppercase
		"ALLUPPERCASE9!",   // no lowercase
		"NoNumbersHere!",   // no digit
		"NoSpecials99x",    // no symbol
		"Abcdefg9!",        // sequential letters
		"Xy123456!",        // sequential numbers
		"Paaassword9!",     // repeating characters
		"MyPassword9!",     // common word
	}
	for _, pw := range weak {
		assert.Error(t, p.ValidatePassword(pw), "password %q", pw)
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	p := NewPasswordManager(testConfig())

	pw, err := p.GenerateTemporaryPassword()
	require.NoError(t, err)
	assert.Len(t, pw, 16)

	other, err := p.GenerateTemporaryPassword()
	require.NoError(t, err)
	assert.NotEqual(t, pw, other)
}
