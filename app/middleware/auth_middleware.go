// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/telecall/app/dto"
	"github.com/amirphl/telecall/app/services"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// AdminAuthenticate validates admin access tokens and sets admin-specific context values
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		claims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			var code, msg string
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				code, msg = "TOKEN_EXPIRED", "Access token has expired"
			case errors.Is(err, services.ErrTokenRevoked):
				code, msg = "TOKEN_REVOKED", "Access token has been revoked"
			case errors.Is(err, services.ErrTokenInvalid):
				code, msg = "TOKEN_INVALID", "Invalid access token"
			default:
				code, msg = "TOKEN_VALIDATION_FAILED", "Token validation failed"
			}
			return unauthorized(c, msg, code)
		}

		// Refresh tokens are only good for obtaining a new pair
		if claims.TokenType != services.TokenTypeAccess {
			return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
		}

		c.Locals("admin_id", claims.AdminID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// AdminIDFromContext returns the authenticated admin id, if any
func AdminIDFromContext(c fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("admin_id").(uint)
	return id, ok
}
