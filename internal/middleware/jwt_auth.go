package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskvera/marketplace_be/internal/utils"
)

// JWTAuth reads the token from the mp_token cookie or, as a fallback, from the
// Authorization: Bearer header (API clients do not hold cookies).
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies("mp_token")
		if tokenStr == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				tokenStr = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		token, _, err := utils.ParseJWT(secret, tokenStr)
		if err != nil || !token.Valid {
			return fiber.ErrUnauthorized
		}

		c.Locals("user", token)
		return c.Next()
	}
}
