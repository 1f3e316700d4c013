package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager(testSecret, "farmmarket", time.Hour)

	token, err := m.GenerateToken("user-1", "farmer")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "farmer", claims.Role)
	assert.Equal(t, "farmmarket", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewJWTManager(testSecret, "farmmarket", time.Hour).GenerateToken("user-1", "customer")
	require.NoError(t, err)

	_, err = NewJWTManager("another-secret-another-secret-123", "farmmarket", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, "farmmarket", -time.Minute)

	token, err := m.GenerateToken("user-1", "customer")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	token, err := NewJWTManager(testSecret, "someone-else", time.Hour).GenerateToken("user-1", "customer")
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, "farmmarket", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "farmmarket",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, "farmmarket", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := NewJWTManager(testSecret, "farmmarket", time.Hour).ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestValidator_MapsClaims(t *testing.T) {
	m := NewJWTManager(testSecret, "farmmarket", time.Hour)
	token, err := m.GenerateToken("user-9", "admin")
	require.NoError(t, err)

	claims, err := m.Validator()(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = m.Validator()("bad")
	assert.Error(t, err)
}
