package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfshare/internal/entities"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer("test-secret", time.Minute)
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue(&entities.User{ID: 42, Role: entities.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestJWTIssuer_Expired(t *testing.T) {
	issuer, err := NewJWTIssuer("test-secret", time.Minute)
	require.NoError(t, err)
	token, _, err := issuer.Issue(&entities.User{ID: 1})
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTIssuer_RejectsForeignSignature(t *testing.T) {
	a, _ := NewJWTIssuer("secret-a", time.Minute)
	b, _ := NewJWTIssuer("secret-b", time.Minute)
	token, _, err := a.Issue(&entities.User{ID: 1})
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer, _ := NewJWTIssuer("secret", time.Minute)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTIssuer_RequiresSecret(t *testing.T) {
	_, err := NewJWTIssuer("", time.Minute)
	assert.Error(t, err)
}
