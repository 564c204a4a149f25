package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultSessionTTL applies when the configured access token TTL is not positive.
const defaultSessionTTL = 60 * time.Minute

// CustomClaims extends JWT standard claims with the caller's role and session.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
}

// NewSession builds an unsaved session for userID that lasts ttlMinutes.
func NewSession(userID string, ttlMinutes int) *Session {
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// GenerateAccessToken creates a signed HS256 token for a user's session.
// The token expires together with the session.
func GenerateAccessToken(user *User, session *Session, secret string) (string, error) {
	if user == nil || session == nil {
		return "", errors.New("generating access token: user and session are required")
	}
	if session.UserID != user.ID {
		return "", fmt.Errorf("generating access token: session %s belongs to another user", session.ID)
	}

	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			ID:        uuid.NewString(),
		},
		Role:      user.Role,
		SessionID: session.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates and parses an access token, returning the custom claims.
// It checks the signature, expiry, and required fields. Session revocation is
// checked separately against the sessions table.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session", ErrTokenInvalid)
	}

	return claims, nil
}

// Principal returns the request principal these claims describe.
func (c *CustomClaims) Principal() Principal {
	return Principal{UserID: c.Subject, Role: c.Role, SessionID: c.SessionID}
}
