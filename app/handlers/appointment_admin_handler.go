package handlers

import (
	"log/slog"
	"strconv"

	"github.com/amirphl/telecall/app/dto"
	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AppointmentAdminHandlerInterface defines the contract for allocator administration handlers
type AppointmentAdminHandlerInterface interface {
	ResetAllocator(c fiber.Ctx) error
	AllocatorStatus(c fiber.Ctx) error
}

// AppointmentAdminHandler implements AppointmentAdminHandlerInterface
type AppointmentAdminHandler struct {
	flow      businessflow.AdminAppointmentFlow
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAppointmentAdminHandler(flow businessflow.AdminAppointmentFlow, logger *slog.Logger) AppointmentAdminHandlerInterface {
	return &AppointmentAdminHandler{
		flow:      flow,
		validator: newValidator(),
		logger:    logger.With("component", "appointment_admin_handler"),
	}
}

// ResetAllocator puts a year's counter back to the baseline and empties the recycled pool
// @Summary Reset appointment allocator
// @Tags Admin Appointments
// @Accept json
// @Produce json
// @Param request body dto.ResetAppointmentAllocatorRequest false "Optional year"
// @Success 200 {object} dto.APIResponse{data=dto.ResetAppointmentAllocatorResponse}
// @Failure 400 {object} dto.APIResponse "Invalid year"
// @Failure 500 {object} dto.APIResponse "Reset failed"
// @Router /api/v1/admin/appointment-ids/reset [post]
func (h *AppointmentAdminHandler) ResetAllocator(c fiber.Ctx) error {
	var req dto.ResetAppointmentAllocatorRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/appointment-ids/reset")
	defer cancel()

	resp, err := h.flow.Reset(ctx, &req, clientMetadata(c))
	if err != nil {
		status, code, message := businessErrorStatus(err)
		h.logger.Error("allocator reset failed", "code", code, "error", err)
		return errorResponse(c, status, message, code, nil)
	}

	return successResponse(c, fiber.StatusOK, "Appointment allocator reset", resp)
}

// AllocatorStatus reports the counter for a year and the recycled pool
// @Summary Appointment allocator status
// @Tags Admin Appointments
// @Produce json
// @Param year query int false "Year (2000-2099)"
// @Success 200 {object} dto.APIResponse{data=dto.AppointmentAllocatorStatusResponse}
// @Failure 400 {object} dto.APIResponse "Invalid year"
// @Router /api/v1/admin/appointment-ids/status [get]
func (h *AppointmentAdminHandler) AllocatorStatus(c fiber.Ctx) error {
	var year *int
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Year must be a number", "INVALID_APPOINTMENT_YEAR", nil)
		}
		year = &parsed
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/appointment-ids/status")
	defer cancel()

	resp, err := h.flow.Status(ctx, year)
	if err != nil {
		status, code, message := businessErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("allocator status failed", "code", code, "error", err)
		}
		return errorResponse(c, status, message, code, nil)
	}

	return successResponse(c, fiber.StatusOK, "Appointment allocator status", resp)
}
