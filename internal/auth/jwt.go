package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims in our JWT token
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates API tokens. The signing secret is
// explicit configuration, not package state.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator creates an authenticator with the given secret.
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret, ttl: 24 * time.Hour}
}

// NewAuthenticatorFromEnv reads the signing secret from SWARA_JWT_SECRET.
// An empty secret disables authentication; callers decide what that means.
func NewAuthenticatorFromEnv() *Authenticator {
	return NewAuthenticator([]byte(os.Getenv("SWARA_JWT_SECRET")))
}

// Enabled reports whether a signing secret is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// GenerateToken generates a JWT token for an API client. The server exposes
// no token endpoint: operators mint tokens out-of-band with the shared
// SWARA_JWT_SECRET and distribute them to clients.
func (a *Authenticator) GenerateToken(clientID string) (string, error) {
	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
