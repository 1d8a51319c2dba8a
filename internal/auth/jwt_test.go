package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(GenerateSecureSecret())
	require.NoError(t, err)
	return s
}

// TestGenerateJWT тестирует создание JWT токена
func TestGenerateJWT(t *testing.T) {
	s := newTestSigner(t)

	token, err := s.GenerateJWT("operator", true, time.Hour)
	require.NoError(t, err)

	// Токен состоит из трёх частей
	assert.Equal(t, 2, strings.Count(token, "."), "Неверный формат JWT токена: %s", token)
}

// TestValidateJWT тестирует валидацию JWT токена
func TestValidateJWT(t *testing.T) {
	s := newTestSigner(t)

	token, err := s.GenerateJWT("disk", true, time.Hour)
	require.NoError(t, err)

	claims, err := s.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "disk", claims.Subject)
	assert.True(t, claims.CanWrite)
}

func TestValidateJWTRejects(t *testing.T) {
	s := newTestSigner(t)
	other := newTestSigner(t)

	expired, err := s.GenerateJWT("old", true, -time.Minute)
	require.NoError(t, err)
	_, err = s.ValidateJWT(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := other.GenerateJWT("x", true, time.Hour)
	require.NoError(t, err)
	_, err = s.ValidateJWT(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ValidateJWT("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerValidatesSecret(t *testing.T) {
	_, err := NewSigner("short")
	assert.Error(t, err)

	_, err = NewSigner("c2hvcnQ=")
	assert.Error(t, err)
}
