package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-desk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)

	token, expiresAt, err := tm.GenerateToken("ops-1", domain.OpsRoleAdmin)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.Subject)
	assert.Equal(t, domain.OpsRoleAdmin, claims.Role)
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 10).GenerateToken("ops-1", domain.OpsRoleViewer)
	require.NoError(t, err)

	_, err = NewTokenManager("two", 10).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManagerDisabledWithoutSecret(t *testing.T) {
	tm := NewTokenManager("", 10)
	assert.False(t, tm.Enabled())

	_, _, err := tm.GenerateToken("ops-1", domain.OpsRoleViewer)
	assert.Error(t, err)
	_, err = tm.ParseToken("anything")
	assert.Error(t, err)
}

func TestTokenRejectsUnknownRole(t *testing.T) {
	_, _, err := NewTokenManager("secret", 10).GenerateToken("ops-1", domain.OpsRole("ROOT"))
	assert.Error(t, err)
}
