package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
)

type revocationCache struct {
	revoked map[string]string
}

func (c *revocationCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.revoked[key]; ok {
		return v, nil
	}
	return "", cacheport.ErrMiss
}

func (c *revocationCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}
func (c *revocationCache) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (c *revocationCache) Incr(context.Context, string) (int64, error) { return 0, nil }
func (c *revocationCache) SAdd(context.Context, string, string) error { return nil }
func (c *revocationCache) SRem(context.Context, string, string) error { return nil }
func (c *revocationCache) SMembers(context.Context, string) ([]string, error) {
	return nil, nil
}
func (c *revocationCache) Del(context.Context, ...string) (int64, error) { return 0, nil }
func (c *revocationCache) Publish(context.Context, string, []byte) error { return nil }
func (c *revocationCache) Subscribe(context.Context, string) (cacheport.Subscription, error) {
	return nil, cacheport.ErrMiss
}
func (c *revocationCache) Ping(context.Context) error { return nil }
func (c *revocationCache) Close() error { return nil }

var _ cacheport.Cache = (*revocationCache)(nil)

const testSecret = "test-secret-please-rotate"

func newTestManager(cache *revocationCache) *TokenManager {
	if cache == nil {
		cache = &revocationCache{}
	}
	return NewTokenManager(testSecret, "chat-be", cache, "auth:revoked:")
}

func TestVerifyAcceptsIssuedToken(t *testing.T) {
	m := newTestManager(nil)

	token, err := m.Issue("user-1", time.Minute)
	require.NoError(t, err)

	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "access", claims.TokenType)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestManager(nil)

	token, err := m.Issue("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	other := NewTokenManager("some-other-secret", "chat-be", &revocationCache{}, "auth:revoked:")
	token, err := other.Issue("user-1", time.Minute)
	require.NoError(t, err)

	m := newTestManager(nil)
	_, err = m.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	other := NewTokenManager(testSecret, "some-other-service", &revocationCache{}, "auth:revoked:")
	token, err := other.Issue("user-1", time.Minute)
	require.NoError(t, err)

	m := newTestManager(nil)
	_, err = m.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager(nil)
	_, err := m.Verify(context.Background(), "not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNonAccessToken(t *testing.T) {
	claims := Claims{
		UserID:    "user-1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			Issuer:    "chat-be",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	m := newTestManager(nil)
	_, err = m.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	cache := &revocationCache{revoked: map[string]string{}}
	m := newTestManager(cache)

	token, err := m.Issue("user-1", time.Minute)
	require.NoError(t, err)

	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)

	cache.revoked["auth:revoked:"+claims.ID] = "1"
	_, err = m.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrRevokedToken)
}

func TestBearerTokenExtraction(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "abc", bearerToken("bearer abc"))
	require.Equal(t, "", bearerToken(""))
	require.Equal(t, "", bearerToken("Basic abc"))
	require.Equal(t, "", bearerToken("Bearer "))
}
