package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrTokenGeneration     = errors.New("failed to generate session token")
)

// IdentityProvider reports the signed-in user of the session, if any.
// Without a user the ledger works on the local cache only.
type IdentityProvider interface {
	UserID() (string, bool)
}

// StaticIdentity is a fixed user id. The empty string means signed out.
type StaticIdentity string

func (s StaticIdentity) UserID() (string, bool) {
	return string(s), s != ""
}

// sessionClaims is the payload of a session token.
type sessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenIdentity takes the user from an HS256 session token. The token is
// checked on every call, so an expired token signs the session out.
type TokenIdentity struct {
	token  string
	secret string
}

// NewTokenIdentity creates an identity backed by a signed session token.
func NewTokenIdentity(token, secret string) *TokenIdentity {
	return &TokenIdentity{token: token, secret: secret}
}

func (t *TokenIdentity) UserID() (string, bool) {
	if t == nil || t.token == "" {
		return "", false
	}
	userID, err := ParseSessionToken(t.token, t.secret)
	if err != nil {
		log.Printf("WARN: Session token rejected, working offline: %v", err)
		return "", false
	}
	return userID, true
}

// ParseSessionToken validates tokenString and returns its user id.
func ParseSessionToken(tokenString, secret string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidSessionToken
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", fmt.Errorf("%w: missing uid claim", ErrInvalidSessionToken)
}

// IssueSessionToken signs a session token for userID that expires after ttl.
func IssueSessionToken(userID, secret string, ttl time.Duration) (string, error) {
	if userID == "" || secret == "" {
		return "", ErrTokenGeneration
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "workout-ledger",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}
