package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	protect := CSRFProtection()

	api := app.Group("/api/v1")
	api.Post("/register", h.Register)
	api.Post("/login", h.Login)
	api.Get("/csrf", protect, csrfToken)

	// Cookie-bound mutations ride behind CSRF protection.
	api.Post("/refresh", protect, h.Refresh)
	api.Delete("/session", protect, h.Logout)

	api.Get("/me", h.RequireAuth, h.Me)
}

func csrfToken(c *fiber.Ctx) error {
	token, _ := c.Locals(csrfTokenKey).(string)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"csrf_token": token})
}
