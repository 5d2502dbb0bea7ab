package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/auth"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
)

// LocalClient is the key to retrieve the authenticated client name from context
const LocalClient = "client"

type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token. WebSocket upgrades may pass it as the
// access_token query parameter since browsers cannot set headers on them.
func Auth(tokens TokenValidator, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" && websocket.IsWebSocketUpgrade(c) {
			token = c.Query("access_token")
		}
		if token == "" {
			return domain.ErrUnauthorized
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			logger.Debug("rejected access token",
				slog.String("request_id", requestID(c)),
				slog.String("error", err.Error()),
			)
			return domain.ErrUnauthorized
		}

		c.Locals(LocalClient, claims.Client)
		return c.Next()
	}
}

// Client returns the authenticated client, empty when auth is disabled
func Client(c *fiber.Ctx) string {
	client, _ := c.Locals(LocalClient).(string)
	return client
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
