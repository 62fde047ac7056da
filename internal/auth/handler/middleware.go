package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"auth-core/internal/auth/service"
)

// claimsKey is the locals slot for verified access-token claims. Handlers
// downstream of RequireAuth read a typed *service.JWTCustomClaims, never a raw
// header.
const claimsKey = "auth_claims"

// csrfTokenKey is the locals slot the csrf middleware stores the issued token
// under, read back by the /csrf handler.
const csrfTokenKey = "csrf_token"

// RequireAuth verifies the bearer access token once and stashes its claims in
// the request locals.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
	}

	claims, err := h.tokens.VerifyAccessToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid access token"})
	}

	c.Locals(claimsKey, claims)

	return c.Next()
}

// ClaimsFromContext returns the claims stored by RequireAuth, or nil.
func ClaimsFromContext(c *fiber.Ctx) *service.JWTCustomClaims {
	claims, _ := c.Locals(claimsKey).(*service.JWTCustomClaims)
	return claims
}

// CSRFProtection guards the routes that mutate state based on the refresh
// cookie. Clients first GET /api/v1/csrf to receive a token, then echo it in
// the X-Csrf-Token header.
func CSRFProtection() fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		ContextKey:     csrfTokenKey,
		CookieName:     "csrf_",
		CookieHTTPOnly: false,
		CookieSameSite: fiber.CookieSameSiteStrictMode,
	})
}
