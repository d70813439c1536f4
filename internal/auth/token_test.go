package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bugtrack/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	user := &domain.User{ID: "u-1", Username: "qa1", Role: domain.RoleQA}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "qa1", claims.Username)
	assert.Equal(t, domain.RoleQA, claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 60)
	token, _, err := tm.GenerateToken(&domain.User{ID: "u-1", Username: "dev1", Role: domain.RoleDeveloper})
	require.NoError(t, err)

	other := NewTokenManager("secret-b", 60)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}
