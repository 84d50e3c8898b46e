package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the identity-provider claims carried by a bearer token.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"cognito:username,omitempty"`
	Role     string `json:"custom:role,omitempty"`
	jwt.RegisteredClaims
}

// Actor maps the claims onto an actor. A missing role means RoleUser and a
// missing username falls back to the email.
func (c *Claims) Actor() actor.Actor {
	username := strings.TrimSpace(c.Username)
	if username == "" {
		username = c.Email
	}
	return actor.Actor{
		ID:       c.Subject,
		Email:    c.Email,
		Username: username,
		Role:     actor.ParseRole(c.Role),
	}
}

// TokenVerifier validates bearer tokens signed with a shared secret or an
// RSA key published by the identity provider.
type TokenVerifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
}

// NewTokenVerifier constructs a verifier. At least one of secret and
// publicKeyPEM must be set.
func NewTokenVerifier(secret string, publicKeyPEM []byte, issuer string) (*TokenVerifier, error) {
	v := &TokenVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
	if len(publicKeyPEM) > 0 {
		key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("security: parse public key: %w", err)
		}
		v.publicKey = key
	}
	if len(v.secret) == 0 && v.publicKey == nil {
		return nil, errors.New("security: jwt secret or public key is required")
	}
	return v, nil
}

// Parse validates a token and returns its claims.
func (v *TokenVerifier) Parse(tokenString string) (*Claims, error) {
	var opts []jwt.ParserOption
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, ErrInvalidToken
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			if v.publicKey == nil {
				return nil, ErrInvalidToken
			}
			return v.publicKey, nil
		default:
			return nil, ErrInvalidToken
		}
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs an HS256 token for local and sandbox deployments.
func GenerateToken(secret, issuer string, a actor.Actor, expiry time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("security: jwt secret is required")
	}
	if strings.TrimSpace(a.ID) == "" {
		return "", errors.New("security: subject is required")
	}
	now := time.Now().UTC()
	claims := Claims{
		Email:    a.Email,
		Username: a.Username,
		Role:     string(a.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
