package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultSecret = "soundscape-secret-change-me"

var errMissingPrincipal = errors.New("token carries no principal")

// Claims is the session token payload issued by the identity provider.
type Claims struct {
	UserID  string `json:"uid,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwtlib.RegisteredClaims
}

// Principal returns the authenticated principal id (uid claim, falling back to sub).
func (c *Claims) Principal() string {
	if id := strings.TrimSpace(c.UserID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}

// Verifier validates HS256 session tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. An empty secret falls back to the built-in default.
func NewVerifier(secret string) *Verifier {
	if strings.TrimSpace(secret) == "" {
		secret = defaultSecret
	}
	return &Verifier{secret: []byte(secret)}
}

// Sign creates a signed token for the given principal.
func (v *Verifier) Sign(principalID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: principalID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   principalID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Parse validates a token string and returns the claims.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Principal() == "" {
		return nil, errMissingPrincipal
	}
	return claims, nil
}
