package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	svc := NewAuthService(nil, "test-secret", time.Hour)

	token, err := svc.IssueToken("user-1", "cook@example.com")
	require.NoError(t, err)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenExpired(t *testing.T) {
	svc := NewAuthService(nil, "test-secret", time.Minute)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.IssueToken("user-1", "cook@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = svc.ParseToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewAuthService(nil, "one", time.Hour).IssueToken("user-1", "a@b.c")
	require.NoError(t, err)

	_, err = NewAuthService(nil, "two", time.Hour).ParseToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthService(nil, "secret", time.Hour).ParseToken(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "cook@example.com", normalizeEmail("  Cook@Example.COM "))
}
