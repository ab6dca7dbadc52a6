package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
)

var (
	// ErrInvalidToken is returned when the token is malformed, has a bad
	// signature, or is not an access token.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("auth: token has expired")
	// ErrRevokedToken is returned when the token was revoked out-of-band.
	ErrRevokedToken = errors.New("auth: token has been revoked")
)

const tokenTypeAccess = "access"

// Claims are the token claims this service understands. The issuing auth
// service lives elsewhere; only verification happens here.
type Claims struct {
	UserID    string `json:"userId"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager verifies bearer credentials for realtime connections and API
// calls: HMAC signature, expiry, token-type claim, and a revocation check
// against the shared store.
type TokenManager struct {
	secret           []byte
	issuer           string
	cache            cacheport.Cache
	revokedKeyPrefix string
}

func NewTokenManager(secret string, issuer string, cache cacheport.Cache, revokedKeyPrefix string) *TokenManager {
	return &TokenManager{
		secret:           []byte(secret),
		issuer:           issuer,
		cache:            cache,
		revokedKeyPrefix: revokedKeyPrefix,
	}
}

// Verify validates the token and resolves the user it belongs to.
func (m *TokenManager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(m.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenTypeAccess || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" {
		_, err := m.cache.Get(ctx, m.revokedKeyPrefix+claims.ID)
		switch {
		case err == nil:
			return nil, ErrRevokedToken
		case errors.Is(err, cacheport.ErrMiss):
			// not revoked
		default:
			return nil, fmt.Errorf("auth: revocation check: %w", err)
		}
	}

	return claims, nil
}

// Issue mints an access token for the given user. The production issuer is
// the external auth service; this exists for tooling and tests.
func (m *TokenManager) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
