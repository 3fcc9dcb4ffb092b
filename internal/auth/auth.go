// Package auth extracts the authenticated user from JWT claims. Token
// issuance is handled by the external auth provider; this package only
// validates tokens and exposes the user id writes must carry.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/bentamate/bentamate-backend/internal/apperr"
)

// CurrentUserID returns the user id from the JWT stored by the middleware
// in `c.Locals("user")`. The provider puts the user id in the `sub` claim.
func CurrentUserID(c *fiber.Ctx) (string, error) {
	u := c.Locals("user")
	if u == nil {
		return "", &apperr.AuthError{}
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return "", &apperr.AuthError{}
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", &apperr.AuthError{}
	}
	if raw, ok := claims["sub"]; ok {
		if id, ok := raw.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", &apperr.AuthError{Message: "token has no subject claim"}
}

// Middleware builds the JWT middleware. GET requests against the public
// catalog endpoints skip authentication; everything else requires a valid
// token.
func Middleware(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		Filter: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return false
			}
			p := c.Path()
			if strings.HasPrefix(p, "/api/v1/products") || strings.HasPrefix(p, "/api/v1/product/") {
				return true
			}
			return false
		},
	})
}
