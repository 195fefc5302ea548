package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altitutor/admin-api/internal/models"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(role models.UserRole) models.JWTClaims {
	return models.JWTClaims{
		UserID: "staff-1",
		Role:   role,
		Email:  "tutor@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "altitutor-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "altitutor-auth"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), validClaims(models.RoleTutor))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.UserID)
	assert.Equal(t, models.RoleTutor, claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims(models.RoleAdminStaff))

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})
	claims := validClaims(models.RoleAdminStaff)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims)

	_, err := svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsIssuerMismatch(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "expected"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), validClaims(models.RoleAdminStaff))

	_, err := svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenFallsBackToSubject(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})
	claims := validClaims(models.RoleAdminStaff)
	claims.UserID = ""
	claims.Subject = "admin-9"
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-9", parsed.UserID)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret"})
	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), validClaims(models.UserRole("STUDENT")))

	_, err := svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
