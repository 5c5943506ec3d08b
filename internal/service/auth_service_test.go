package service

import (
	"testing"

	"koios-rag-be/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenCarriesClaims(t *testing.T) {
	svc := NewAuthService("secret", "koios", 0, nil, nil)

	res, err := svc.IssueToken(&dto.TokenRequest{UserId: "alice"})
	require.NoError(t, err)

	token, err := jwt.Parse(res.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "koios", claims["iss"])
	assert.NotNil(t, claims["iat"])
	_, hasExp := claims["exp"]
	assert.False(t, hasExp, "expiry 0 must not add an exp claim")
}

func TestIssueTokenRejectsUnapprovedUser(t *testing.T) {
	svc := NewAuthService("secret", "koios", 0, []string{"alice"}, nil)

	_, err := svc.IssueToken(&dto.TokenRequest{UserId: "mallory"})
	assert.Error(t, err)

	_, err = svc.IssueToken(&dto.TokenRequest{UserId: "alice"})
	assert.NoError(t, err)
}

func TestIsIpAuthorized(t *testing.T) {
	// Empty list: loopback only
	svc := NewAuthService("secret", "koios", 0, nil, nil)
	assert.True(t, svc.IsIpAuthorized("127.0.0.1"))
	assert.True(t, svc.IsIpAuthorized("::1"))
	assert.False(t, svc.IsIpAuthorized("10.0.0.5"))

	// Explicit list replaces the loopback default
	svc = NewAuthService("secret", "koios", 0, nil, []string{"10.0.0.5"})
	assert.True(t, svc.IsIpAuthorized("10.0.0.5"))
	assert.False(t, svc.IsIpAuthorized("127.0.0.1"))
}
