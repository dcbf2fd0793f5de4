package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "leaseguard/pkg/domain-errors"
)

func newTestService() *JWTService {
	return NewJWTService("test-signing-key", "leaseguard", "leaseguard-api")
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestService()
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "alex@example.com", "reviewer", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alex@example.com", claims.Email)
	assert.Equal(t, "reviewer", claims.Role)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateAccessToken(uuid.New(), "a@example.com", "applicant", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	token, err := newTestService().GenerateAccessToken(uuid.New(), "a@example.com", "admin", time.Hour)
	require.NoError(t, err)

	other := NewJWTService("different-key", "leaseguard", "leaseguard-api")
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	_, err := newTestService().ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
