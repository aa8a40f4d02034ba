// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/amirphl/telecall/app/dto"
	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/amirphl/telecall/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Digits with an optional leading plus, 7 to 15 long (E.164 bounds)
var phoneNumberPattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// newValidator returns a validator with the custom tags used by request DTOs
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return phoneNumberPattern.MatchString(fl.Field().String())
	})
	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "phone_number":
		return "Phone number must contain 7 to 15 digits with an optional leading +"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func validationMessages(err error) []string {
	var messages []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			messages = append(messages, getValidationErrorMessage(fe))
		}
		return messages
	}
	return []string{err.Error()}
}

// errorResponse writes the standard JSON error envelope
func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// successResponse writes the standard JSON success envelope
func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// createRequestContext bounds the request's store calls and carries
// request-scoped values for the audit trail
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context(), utils.RequestTimeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

// clientMetadata collects who made the request for audit logging
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	if adminID, ok := c.Locals("admin_id").(uint); ok {
		metadata.SetAdminID(adminID)
	}
	return metadata
}

// businessErrorStatus maps a flow error to its HTTP status and error code
func businessErrorStatus(err error) (int, string, string) {
	switch {
	case businessflow.IsAllocationFailed(err):
		return fiber.StatusServiceUnavailable, "APPOINTMENT_ID_ALLOCATION_FAILED", "Could not allocate an appointment id"
	case businessflow.IsDuplicateAppointmentID(err):
		return fiber.StatusInternalServerError, "APPOINTMENT_ID_CONFLICT", "Appointment id is already in use"
	case businessflow.IsInvalidAppointmentYear(err):
		return fiber.StatusBadRequest, "INVALID_APPOINTMENT_YEAR", "Appointment year must be between 2000 and 2099"
	case businessflow.IsTelecallingRecordNotFound(err):
		return fiber.StatusNotFound, "TELECALLING_RECORD_NOT_FOUND", "Telecalling record not found"
	}

	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		if be.Code == "VALIDATION_ERROR" {
			return fiber.StatusBadRequest, be.Code, be.Message
		}
		return fiber.StatusInternalServerError, be.Code, be.Message
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "An internal server error occurred"
}
