package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SplitFund/app/models"
	"github.com/ManuelReschke/SplitFund/app/repository"
	"github.com/ManuelReschke/SplitFund/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware resolves the caller from an API key header and loads
// their user context into Locals. Requests without a resolvable key are
// rejected before reaching any handler.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawKey := extractAPIKeyFromHeader(c)
		if rawKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		repo := repository.GetGlobalFactory().GetUserRepository()
		user, err := repo.GetByAPIKeyHash(models.HashAPIKey(rawKey))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		// Last-used bookkeeping must never fail the request.
		if err := repo.TouchAPIKeyUsage(user.ID); err != nil {
			log.Printf("failed to touch api key usage for user %d: %v", user.ID, err)
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			IsLoggedIn: true,
			IsAdmin:    user.IsAdmin(),
		})
		return c.Next()
	}
}

// RequireAdminMiddleware rejects callers without the admin role. It expects
// APIKeyAuthMiddleware to have run first.
func RequireAdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !usercontext.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin role required"})
		}
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-API-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}
