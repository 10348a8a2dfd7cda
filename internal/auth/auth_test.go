package auth

import (
	"testing"
	"time"

	"recycle-pickup-api-server/config"
	"recycle-pickup-api-server/internal/lifecycle"
	"recycle-pickup-api-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	HashCost = bcrypt.MinCost
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService(config.JWTConfig{Expiration: "1h"})
	assert.Error(t, err)
	_, err = NewTokenService(config.JWTConfig{Secret: "k", Expiration: "tomorrow"})
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(config.JWTConfig{Secret: "test-secret", Expiration: "1h"})
	require.NoError(t, err)

	token, err := svc.Generate(models.User{ID: "u1", Email: "a@b.c", Role: models.RoleAgent, CommunityID: "c1"})
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.CommunityID)

	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Agent{ID: "u1"}, actor)
}

func TestTokenService_Rejects(t *testing.T) {
	svc, err := NewTokenService(config.JWTConfig{Secret: "test-secret", Expiration: "1h"})
	require.NoError(t, err)
	token, err := svc.Generate(models.User{ID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	other, err := NewTokenService(config.JWTConfig{Secret: "other", Expiration: "1h"})
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
