package store

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"regportal/pkg/domain"
)

// JWTSessionStore issues and validates signed session tokens, for
// deployments that run without Redis. Logout cannot revoke a token before
// its expiry; the TTL is the only bound.
type JWTSessionStore struct {
	secret []byte
	ttl    time.Duration
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewJWTSessionStore builds a stateless session store signed with the
// session secret.
func NewJWTSessionStore(secret string, ttl time.Duration) *JWTSessionStore {
	return &JWTSessionStore{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewSession creates a signed token carrying the user ID and email.
func (s *JWTSessionStore) NewSession(userID, email string) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// GetSession validates a token and returns the embedded session. Expired
// and malformed tokens report absence.
func (s *JWTSessionStore) GetSession(token string) (domain.Session, bool, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenMalformed) ||
			errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.Session{}, false, nil
	}
	return domain.Session{UserID: claims.Subject, Email: claims.Email}, true, nil
}

// DeleteSession is a no-op for stateless tokens; provided for interface
// parity.
func (s *JWTSessionStore) DeleteSession(_ string) error {
	return nil
}
