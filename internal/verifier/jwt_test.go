package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func baseClaims(expiry time.Duration) Claims {
	return Claims{
		TenantID: "utec",
		FullName: "Maria Lopez",
		Role:     "alumno",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "74829301",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
}

func TestJWTVerifierVerify(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	token := signToken(t, baseClaims(time.Hour))
	identity, err := v.Verify(context.Background(), token, "utec")
	require.NoError(t, err)
	assert.Equal(t, "74829301", identity.StudentID)
	assert.Equal(t, "Maria Lopez", identity.FullName)
	assert.Equal(t, models.RoleAlumno, identity.Role)
}

func TestJWTVerifierExpiredToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	token := signToken(t, baseClaims(-time.Minute))
	_, err := v.Verify(context.Background(), token, "utec")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
}

func TestJWTVerifierWrongTenant(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	token := signToken(t, baseClaims(time.Hour))
	_, err := v.Verify(context.Background(), token, "otra-uni")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestJWTVerifierBadSignature(t *testing.T) {
	claims := baseClaims(time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	v := NewJWTVerifier(testSecret)
	_, err = v.Verify(context.Background(), signed, "utec")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestJWTVerifierUnknownRole(t *testing.T) {
	claims := baseClaims(time.Hour)
	claims.Role = "decano"
	token := signToken(t, claims)

	v := NewJWTVerifier(testSecret)
	_, err := v.Verify(context.Background(), token, "utec")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
