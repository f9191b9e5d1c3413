package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/utils"
)

// WithIdentity verifies a bearer token when one is present and binds the
// normalized identity to the request context. Requests without a token pass
// through anonymously; invalid tokens are rejected.
func WithIdentity(verifier auth.Verifier, logger zerolog.Logger) fiber.Handler {
	authLogger := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		if verifier == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication not configured")
		}

		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			authLogger.Debug().Err(err).Msg("bearer token rejected")
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_subject", identity.Subject)
		c.SetUserContext(auth.ContextWithIdentity(c.UserContext(), identity))

		return c.Next()
	}
}

// RequireIdentity rejects requests that did not authenticate.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auth.IdentityFromContext(c.UserContext()) == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if header == "" {
		return ""
	}

	const bearer = "Bearer "
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}

	return strings.TrimSpace(header[len(bearer):])
}
