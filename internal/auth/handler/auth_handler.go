package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"auth-core/internal/auth/dto"
	"auth-core/internal/auth/service"
	autherror "auth-core/internal/errors"
)

const refreshCookieName = "refresh_token"

type AuthHandler struct {
	authService  *service.AuthService
	tokens       service.TokenGenerator
	validate     *validator.Validate
	logger       *zap.Logger
	secureCookie bool
}

func NewAuthHandler(authService *service.AuthService, tokens service.TokenGenerator, logger *zap.Logger, secureCookie bool) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		authService:  authService,
		tokens:       tokens,
		validate:     validator.New(),
		logger:       logger,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	user, err := h.authService.Register(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	result, err := h.authService.Login(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	h.setRefreshCookie(c, result.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	input := dto.RefreshInput{RefreshToken: h.refreshTokenFromRequest(c)}
	if input.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing refresh token"})
	}

	tokens, err := h.authService.Refresh(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(tokens)
}

// Logout always reports success; revocation failures are a server concern,
// not the client's.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.authService.Logout(c.Context(), dto.LogoutInput{RefreshToken: h.refreshTokenFromRequest(c)})
	h.clearRefreshCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	user, err := h.authService.Me(c.Context(), claims)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

// refreshTokenFromRequest prefers the HTTP-only cookie and falls back to the
// JSON body for non-browser clients.
func (h *AuthHandler) refreshTokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(refreshCookieName); token != "" {
		return token
	}

	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return ""
	}
	return input.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		MaxAge:   int(h.tokens.GetRefreshTokenExpiry().Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

// fail maps core error kinds to fixed status codes; no free-text inspection.
func (h *AuthHandler) fail(c *fiber.Ctx, err error) error {
	var locked *autherror.AccountLockedError

	switch {
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, autherror.ErrInvalidCredentials), errors.Is(err, autherror.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &locked):
		retryAfter := int(locked.RetryAfter(time.Now()).Seconds())
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":       locked.Error(),
			"retry_after": retryAfter,
		})
	case errors.Is(err, autherror.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("unexpected auth error", zap.Error(err))
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
