package jwt

import (
	"testing"
	"time"

	"fpiersk/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(secret string) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     secret,
		ExpireTime: time.Hour,
		Issuer:     "fpiersk",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService("test-secret")

	token, err := svc.GenerateToken("alice@example.com", map[string]interface{}{"nick": "Alice#0042"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, "Alice#0042", claims.Data["nick"])
}

func TestGenerateToken_EmptyEmail(t *testing.T) {
	svc := newTestService("test-secret")

	_, err := svc.GenerateToken("", nil)
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := newTestService("secret-a").GenerateToken("alice@example.com", nil)
	require.NoError(t, err)

	_, err = newTestService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: -time.Minute,
		Issuer:     "fpiersk",
	})

	token, err := svc.GenerateToken("alice@example.com", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
