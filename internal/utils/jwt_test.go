// internal/utils/jwt_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAdminJWT(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateAdminJWT(24)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "kitshop", claims.Issuer)
	assert.Equal(t, "admin-console", claims.Subject)
}

func TestValidateJWTRejectsTampering(t *testing.T) {
	SetJWTSecret("test-secret")
	token, err := GenerateAdminJWT(24)
	require.NoError(t, err)

	_, err = ValidateJWT(token + "x")
	assert.Error(t, err)

	SetJWTSecret("rotated-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}
