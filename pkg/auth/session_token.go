// Package auth signs and validates the tokens that bind a browser page to its widget session
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "meagent_service"

// ErrInvalidToken is wrapped by every validation failure
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims extends JWT claims with the widget session binding
type SessionClaims struct {
	SessionID string `json:"session_id"`
	Origin    string `json:"origin,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokens issues HS256 session tokens
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens creates a token service. A zero ttl defaults to 24 hours.
func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for sessionID and returns it with its expiry
func (s *SessionTokens) Issue(sessionID, origin string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := SessionClaims{
		SessionID: sessionID,
		Origin:    origin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   sessionID,
			ID:        uuid.New().String(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, exp, nil
}

// Validate parses tokenString and checks it was issued for sessionID
func (s *SessionTokens) Validate(tokenString, sessionID string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SessionID != sessionID {
		return nil, fmt.Errorf("%w: token belongs to another session", ErrInvalidToken)
	}
	return claims, nil
}
