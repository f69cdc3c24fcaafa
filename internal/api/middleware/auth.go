package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// LocalClientKey is the key to retrieve the caller identity from context
const LocalClientKey = "client_key"

// Auth creates an authentication middleware comparing the hashed Bearer key
// against the configured hash. The comparison is constant time so timing does
// not reveal how much of the key matched.
func Auth(apiKeyHash string) fiber.Handler {
	expected := []byte(strings.ToLower(apiKeyHash))

	return func(c *fiber.Ctx) error {
		apiKey := extractBearerToken(c)
		if apiKey == "" {
			return domain.ErrUnauthorized
		}

		hash := hashAPIKey(apiKey)
		if subtle.ConstantTimeCompare([]byte(hash), expected) != 1 {
			return domain.ErrUnauthorized
		}

		// The hash prefix identifies the caller for rate limiting without
		// carrying key material around
		c.Locals(LocalClientKey, hash[:12])

		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// hashAPIKey generates SHA-256 hash of API Key
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// GetClientKey retrieves the caller identity from Fiber context
func GetClientKey(c *fiber.Ctx) (string, error) {
	key, ok := c.Locals(LocalClientKey).(string)
	if !ok || key == "" {
		return "", domain.ErrUnauthorized
	}
	return key, nil
}
