package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/pkg/jwt"
	"github.com/soundscape/server/internal/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "user_email"
	ContextKeyClaims = "claims"
)

// Auth returns a middleware that requires a valid bearer token.
func Auth(verifier *jwt.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(verifier, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the principal if a valid token is present, but does not block the request.
func OptionalAuth(verifier *jwt.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateToken(verifier, extractToken(c)); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// AdminChecker decides whether a principal may use admin routes.
type AdminChecker func(ctx context.Context, principalID, email string) (bool, error)

// Admin must run after Auth.
func Admin(check AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentUserID(c)
		if id == "" {
			response.Unauthorized(c)
			return
		}
		ok, err := check(c.Request.Context(), id, CurrentEmail(c))
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if !ok {
			response.ForbiddenMsg(c, "admin access required")
			return
		}
		c.Next()
	}
}

// ValidateToken verifies a raw bearer token and returns its claims.
func ValidateToken(verifier *jwt.Verifier, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	return verifier.Parse(token)
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ContextKeyUserID, claims.Principal())
	c.Set(ContextKeyEmail, claims.Email)
	c.Set(ContextKeyClaims, claims)
}

// CurrentUserID extracts the authenticated principal id from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

func CurrentEmail(c *gin.Context) string {
	v, _ := c.Get(ContextKeyEmail)
	email, _ := v.(string)
	return email
}

// CurrentClaims returns the verified token claims, or nil.
func CurrentClaims(c *gin.Context) *jwt.Claims {
	v, _ := c.Get(ContextKeyClaims)
	claims, _ := v.(*jwt.Claims)
	return claims
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
