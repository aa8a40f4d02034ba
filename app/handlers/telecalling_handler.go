package handlers

import (
	"log/slog"
	"strconv"

	"github.com/amirphl/telecall/app/dto"
	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TelecallingHandlerInterface defines the contract for telecalling record handlers
type TelecallingHandlerInterface interface {
	CreateDraft(c fiber.Ctx) error
	PreviewNextAppointmentID(c fiber.Ctx) error
	CreateRecord(c fiber.Ctx) error
	UpdateRecord(c fiber.Ctx) error
	GetRecord(c fiber.Ctx) error
	ListRecords(c fiber.Ctx) error
	ExportRecords(c fiber.Ctx) error
	DeleteRecord(c fiber.Ctx) error
}

// TelecallingHandler implements TelecallingHandlerInterface
type TelecallingHandler struct {
	flow      businessflow.TelecallingFlow
	validator *validator.Validate
	logger    *slog.Logger
}

func NewTelecallingHandler(flow businessflow.TelecallingFlow, logger *slog.Logger) TelecallingHandlerInterface {
	return &TelecallingHandler{
		flow:      flow,
		validator: newValidator(),
		logger:    logger.With("component", "telecalling_handler"),
	}
}

// CreateDraft reserves an appointment id with a placeholder record
// @Summary Create draft record
// @Tags Telecalling
// @Accept json
// @Produce json
// @Param request body dto.CreateDraftRequest false "Optional year"
// @Success 201 {object} dto.APIResponse{data=dto.TelecallingRecordResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Appointment id allocation failed"
// @Router /api/v1/telecalling/drafts [post]
func (h *TelecallingHandler) CreateDraft(c fiber.Ctx) error {
	var req dto.CreateDraftRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/drafts")
	defer cancel()

	record, err := h.flow.CreateDraft(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "create draft")
	}

	return successResponse(c, fiber.StatusCreated, "Draft created successfully", record)
}

// PreviewNextAppointmentID allocates and returns the next appointment id.
// The id is consumed even if it is never attached to a record.
// @Summary Preview next appointment id
// @Tags Telecalling
// @Produce json
// @Param year query int false "Year (2000-2099)"
// @Success 200 {object} dto.APIResponse{data=dto.NextAppointmentIDResponse}
// @Failure 400 {object} dto.APIResponse "Invalid year"
// @Failure 503 {object} dto.APIResponse "Appointment id allocation failed"
// @Router /api/v1/telecalling/appointment-ids/next [get]
func (h *TelecallingHandler) PreviewNextAppointmentID(c fiber.Ctx) error {
	var year *int
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Year must be a number", "INVALID_APPOINTMENT_YEAR", nil)
		}
		year = &parsed
	}

	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/appointment-ids/next")
	defer cancel()

	resp, err := h.flow.PreviewNextAppointmentID(ctx, year, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "preview appointment id")
	}

	return successResponse(c, fiber.StatusOK, "Appointment id allocated", resp)
}

// CreateRecord creates a complete record in one step
// @Summary Create record
// @Tags Telecalling
// @Accept json
// @Produce json
// @Param request body dto.CreateTelecallingRecordRequest true "Record data"
// @Success 201 {object} dto.APIResponse{data=dto.TelecallingRecordResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Appointment id allocation failed"
// @Router /api/v1/telecalling/records [post]
func (h *TelecallingHandler) CreateRecord(c fiber.Ctx) error {
	var req dto.CreateTelecallingRecordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/records")
	defer cancel()

	record, err := h.flow.CreateFinal(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "create record")
	}

	return successResponse(c, fiber.StatusCreated, "Record created successfully", record)
}

// UpdateRecord completes a draft or edits a record's business fields
// @Summary Update record
// @Tags Telecalling
// @Accept json
// @Produce json
// @Param uuid path string true "Record UUID"
// @Param request body dto.UpdateTelecallingRecordRequest true "Record data"
// @Success 200 {object} dto.APIResponse{data=dto.TelecallingRecordResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Record not found"
// @Router /api/v1/telecalling/records/{uuid} [put]
func (h *TelecallingHandler) UpdateRecord(c fiber.Ctx) error {
	recordUUID := c.Params("uuid")

	var req dto.UpdateTelecallingRecordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/records/{uuid}")
	defer cancel()

	record, err := h.flow.CompleteDraft(ctx, recordUUID, &req, clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "update record")
	}

	return successResponse(c, fiber.StatusOK, "Record updated successfully", record)
}

// GetRecord returns one record
// @Summary Get record
// @Tags Telecalling
// @Produce json
// @Param uuid path string true "Record UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TelecallingRecordResponse}
// @Failure 404 {object} dto.APIResponse "Record not found"
// @Router /api/v1/telecalling/records/{uuid} [get]
func (h *TelecallingHandler) GetRecord(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/records/{uuid}")
	defer cancel()

	record, err := h.flow.Get(ctx, c.Params("uuid"))
	if err != nil {
		return h.flowError(c, err, "get record")
	}

	return successResponse(c, fiber.StatusOK, "Record retrieved successfully", record)
}

// ListRecords returns a page of records
// @Summary List records
// @Tags Telecalling
// @Produce json
// @Param status query string false "draft|active"
// @Param page query int false "Page number"
// @Param page_size query int false "Items per page (max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListTelecallingRecordsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/telecalling/records [get]
func (h *TelecallingHandler) ListRecords(c fiber.Ctx) error {
	req, err := h.parseListRequest(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/records")
	defer cancel()

	result, err := h.flow.List(ctx, req)
	if err != nil {
		return h.flowError(c, err, "list records")
	}

	return successResponse(c, fiber.StatusOK, "Records retrieved successfully", result)
}

// ExportRecords streams matching records as an xlsx workbook
// @Summary Export records
// @Tags Telecalling
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "draft|active"
// @Success 200 {file} file "xlsx workbook"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/telecalling/records/export [get]
func (h *TelecallingHandler) ExportRecords(c fiber.Ctx) error {
	req, err := h.parseListRequest(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/records/export")
	defer cancel()

	filename, data, err := h.flow.ExportRecords(ctx, req)
	if err != nil {
		return h.flowError(c, err, "export records")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// DeleteRecord deletes a record and returns its appointment id to the pool.
// The delete succeeds even when the id could not be reclaimed.
// @Summary Delete record
// @Tags Telecalling
// @Produce json
// @Param uuid path string true "Record UUID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteTelecallingRecordResponse}
// @Failure 404 {object} dto.APIResponse "Record not found"
// @Router /api/v1/telecalling/records/{uuid} [delete]
func (h *TelecallingHandler) DeleteRecord(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/telecalling/records/{uuid}")
	defer cancel()

	resp, err := h.flow.Delete(ctx, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "delete record")
	}

	return successResponse(c, fiber.StatusOK, "Record deleted successfully", resp)
}

func (h *TelecallingHandler) parseListRequest(c fiber.Ctx) (*dto.ListTelecallingRecordsRequest, error) {
	req := &dto.ListTelecallingRecordsRequest{}
	if v := c.Query("status"); v != "" {
		req.Status = &v
	}
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil {
		req.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil {
		req.PageSize = v
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (h *TelecallingHandler) flowError(c fiber.Ctx, err error, operation string) error {
	status, code, message := businessErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("telecalling request failed", "operation", operation, "code", code, "error", err)
	}
	return errorResponse(c, status, message, code, nil)
}
