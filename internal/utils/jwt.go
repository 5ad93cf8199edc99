package utils // package utils provides helpers for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for any session token that fails signature,
// algorithm or expiry checks.  Callers cannot tell which check failed.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed JWT proving a prior login, with its expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims is the payload of a session token.  ID is the user id;
// IssuedAt is checked against the user's password change time.
type SessionClaims struct {
	ID uint64 `json:"id"`
	jwt.RegisteredClaims
}

// NewSessionToken builds and signs an HS256 session token for a user.
func NewSessionToken(secret string, userID uint64, ttl time.Duration, now time.Time) (SessionToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns its claims.  Only HMAC signed
// tokens with an expiry and issued-at are accepted.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil || !tok.Valid {
		return SessionClaims{}, errors.Join(ErrInvalidSession, err)
	}
	if claims.ID == 0 || claims.IssuedAt == nil {
		return SessionClaims{}, ErrInvalidSession
	}
	return claims, nil
}
