package handlers

import (
	"errors"
	"strings"

	"github.com/amirphl/telecall/app/dto"
	"github.com/amirphl/telecall/app/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AdminAuthHandlerInterface defines the contract for admin session handlers
type AdminAuthHandlerInterface interface {
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
}

// AdminAuthHandler implements AdminAuthHandlerInterface. Tokens are minted by
// the `token admin` command; these endpoints only rotate and revoke them.
type AdminAuthHandler struct {
	tokens    services.TokenService
	validator *validator.Validate
}

func NewAdminAuthHandler(tokens services.TokenService) AdminAuthHandlerInterface {
	return &AdminAuthHandler{
		tokens:    tokens,
		validator: newValidator(),
	}
}

// Refresh rotates an admin token pair
// @Summary Refresh admin token
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshAdminTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AdminTokenResponse}
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/admin/auth/refresh [post]
func (h *AdminAuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshAdminTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	access, refresh, err := h.tokens.RefreshAdminToken(req.RefreshToken)
	if err != nil {
		code := "TOKEN_INVALID"
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			code = "TOKEN_EXPIRED"
		case errors.Is(err, services.ErrTokenRevoked):
			code = "TOKEN_REVOKED"
		}
		return errorResponse(c, fiber.StatusUnauthorized, "Refresh failed", code, nil)
	}

	return successResponse(c, fiber.StatusOK, "Token refreshed", dto.AdminTokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	})
}

// Logout revokes the access token used for the request
// @Summary Admin logout
// @Tags Admin Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/admin/auth/logout [post]
func (h *AdminAuthHandler) Logout(c fiber.Ctx) error {
	token := strings.TrimSpace(strings.TrimPrefix(c.Get("Authorization"), "Bearer "))
	if err := h.tokens.RevokeToken(token); err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid access token", "TOKEN_INVALID", nil)
	}
	return successResponse(c, fiber.StatusOK, "Logged out", nil)
}
