package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirphl/telecall/app/dto"
	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/repository"
	"github.com/amirphl/telecall/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// TelecallingFlow handles the lifecycle of telecalling records and the
// appointment ids they hold
type TelecallingFlow interface {
	CreateDraft(ctx context.Context, req *dto.CreateDraftRequest, metadata *ClientMetadata) (*dto.TelecallingRecordResponse, error)
	CreateFinal(ctx context.Context, req *dto.CreateTelecallingRecordRequest, metadata *ClientMetadata) (*dto.TelecallingRecordResponse, error)
	CompleteDraft(ctx context.Context, recordUUID string, req *dto.UpdateTelecallingRecordRequest, metadata *ClientMetadata) (*dto.TelecallingRecordResponse, error)
	Get(ctx context.Context, recordUUID string) (*dto.TelecallingRecordResponse, error)
	List(ctx context.Context, req *dto.ListTelecallingRecordsRequest) (*dto.ListTelecallingRecordsResponse, error)
	Delete(ctx context.Context, recordUUID string, metadata *ClientMetadata) (*dto.DeleteTelecallingRecordResponse, error)
	PreviewNextAppointmentID(ctx context.Context, year *int, metadata *ClientMetadata) (*dto.NextAppointmentIDResponse, error)
	ExportRecords(ctx context.Context, req *dto.ListTelecallingRecordsRequest) (string, []byte, error)
}

// TelecallingFlowImpl implements TelecallingFlow
type TelecallingFlowImpl struct {
	db         *gorm.DB
	recordRepo repository.TelecallingRecordRepository
	allocator  AppointmentAllocator
	reclaimer  AppointmentReclaimer
	audit      auditRecorder
	logger     *slog.Logger
	timezone   string
}

// NewTelecallingFlow creates a new telecalling flow. timezone decides which
// calendar year a request without an explicit year falls in.
func NewTelecallingFlow(
	db *gorm.DB,
	recordRepo repository.TelecallingRecordRepository,
	auditRepo repository.AuditLogRepository,
	allocator AppointmentAllocator,
	reclaimer AppointmentReclaimer,
	timezone string,
	logger *slog.Logger,
) TelecallingFlow {
	logger = logger.With("component", "telecalling_flow")
	return &TelecallingFlowImpl{
		db:         db,
		recordRepo: recordRepo,
		allocator:  allocator,
		reclaimer:  reclaimer,
		audit:      auditRecorder{repo: auditRepo, logger: logger},
		logger:     logger,
		timezone:   timezone,
	}
}

const exportBatchSize = 500

// CreateDraft reserves an appointment id by inserting a placeholder record.
// A draft that is never completed keeps its id until it is deleted.
func (f *TelecallingFlowImpl) CreateDraft(ctx context.Context, req *dto.CreateDraftRequest, metadata *ClientMetadata) (*dto.TelecallingRecordResponse, error) {
	var requested *int
	if req != nil {
		requested = req.Year
	}
	year, err := resolveAppointmentYear(requested, f.timezone)
	if err != nil {
		return nil, err
	}

	appointmentID, err := f.allocate(ctx, year, metadata)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	record := &models.TelecallingRecord{
		UUID:          uuid.New(),
		AppointmentID: appointmentID,
		Status:        models.TelecallingStatusDraft,
		CustomerName:  models.DraftPlaceholderCustomerName,
		PhoneNumber:   models.DraftPlaceholderPhoneNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.insert(ctx, record, metadata); err != nil {
		return nil, err
	}

	f.audit.record(ctx, auditEntry{
		action:        models.AuditActionDraftCreated,
		description:   fmt.Sprintf("Draft reserved appointment id %s", appointmentID),
		recordID:      &record.ID,
		appointmentID: appointmentID,
		success:       true,
	}, metadata)

	resp := ToTelecallingRecordResponse(*record)
	return &resp, nil
}

// CreateFinal allocates an id and stores a complete record in one call
func (f *TelecallingFlowImpl) CreateFinal(ctx context.Context, req *dto.CreateTelecallingRecordRequest, metadata *ClientMetadata) (*dto.TelecallingRecordResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request is required", ErrTelecallingRecordRequired)
	}
	if err := validateBusinessFields(req.CustomerName, req.PhoneNumber); err != nil {
		return nil, err
	}

	year, err := resolveAppointmentYear(req.Year, f.timezone)
	if err != nil {
		return nil, err
	}

	appointmentID, err := f.allocate(ctx, year, metadata)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	record := &models.TelecallingRecord{
		UUID:          uuid.New(),
		AppointmentID: appointmentID,
		Status:        models.TelecallingStatusActive,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		AgentName:     trimmedOrNil(req.AgentName),
		AppointmentAt: utcOrNil(req.AppointmentAt),
		Notes:         trimmedOrNil(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.insert(ctx, record, metadata); err != nil {
		return nil, err
	}

	f.audit.record(ctx, auditEntry{
		action:        models.AuditActionRecordCreated,
		description:   fmt.Sprintf("Record created with appointment id %s", appointmentID),
		recordID:      &record.ID,
		appointmentID: appointmentID,
		success:       true,
	}, metadata)

	resp := ToTelecallingRecordResponse(*record)
	return &resp, nil
}

// CompleteDraft fills in the business fields of a record and marks it active.
// The reserved appointment id is kept.
func (f *TelecallingFlowImpl) CompleteDraft(ctx context.Context, recordUUID string, req *dto.UpdateTelecallingRecordRequest, metadata *ClientMetadata) (*dto.TelecallingRecordResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Request is required", ErrTelecallingRecordRequired)
	}
	if err := validateBusinessFields(req.CustomerName, req.PhoneNumber); err != nil {
		return nil, err
	}

	record, err := f.recordRepo.ByUUID(ctx, recordUUID)
	if err != nil {
		return nil, NewBusinessError("TELECALLING_RECORD_LOOKUP_FAILED", "Failed to load telecalling record", err)
	}
	if record == nil {
		return nil, NewBusinessError("TELECALLING_RECORD_NOT_FOUND", "Telecalling record not found", ErrTelecallingRecordNotFound)
	}

	wasDraft := record.IsDraft()
	record.Status = models.TelecallingStatusActive
	record.CustomerName = strings.TrimSpace(req.CustomerName)
	record.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	record.AgentName = trimmedOrNil(req.AgentName)
	record.AppointmentAt = utcOrNil(req.AppointmentAt)
	record.Notes = trimmedOrNil(req.Notes)
	record.UpdatedAt = utils.UTCNow()

	if err := f.recordRepo.Update(ctx, record); err != nil {
		return nil, NewBusinessError("TELECALLING_RECORD_UPDATE_FAILED", "Failed to update telecalling record", err)
	}

	action := models.AuditActionRecordUpdated
	description := fmt.Sprintf("Record %s updated", record.AppointmentID)
	if wasDraft {
		action = models.AuditActionDraftCompleted
		description = fmt.Sprintf("Draft %s completed", record.AppointmentID)
	}
	f.audit.record(ctx, auditEntry{
		action:        action,
		description:   description,
		recordID:      &record.ID,
		appointmentID: record.AppointmentID,
		success:       true,
	}, metadata)

	resp := ToTelecallingRecordResponse(*record)
	return &resp, nil
}

func (f *TelecallingFlowImpl) Get(ctx context.Context, recordUUID string) (*dto.TelecallingRecordResponse, error) {
	record, err := f.recordRepo.ByUUID(ctx, recordUUID)
	if err != nil {
		return nil, NewBusinessError("TELECALLING_RECORD_LOOKUP_FAILED", "Failed to load telecalling record", err)
	}
	if record == nil {
		return nil, NewBusinessError("TELECALLING_RECORD_NOT_FOUND", "Telecalling record not found", ErrTelecallingRecordNotFound)
	}

	resp := ToTelecallingRecordResponse(*record)
	return &resp, nil
}

func (f *TelecallingFlowImpl) List(ctx context.Context, req *dto.ListTelecallingRecordsRequest) (*dto.ListTelecallingRecordsResponse, error) {
	filter, page, pageSize, err := listParams(req)
	if err != nil {
		return nil, err
	}

	total, err := f.recordRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("TELECALLING_RECORD_LIST_FAILED", "Failed to count telecalling records", err)
	}

	records, err := f.recordRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("TELECALLING_RECORD_LIST_FAILED", "Failed to list telecalling records", err)
	}

	items := make([]dto.TelecallingRecordResponse, 0, len(records))
	for _, record := range records {
		items = append(items, ToTelecallingRecordResponse(*record))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.ListTelecallingRecordsResponse{
		Items: items,
		Pagination: dto.PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// Delete removes a record and returns its appointment id to the pool. Only
// the caller whose delete removed the row reclaims, so a concurrent double
// delete reclaims once. Reclaim problems are logged and never fail the delete.
func (f *TelecallingFlowImpl) Delete(ctx context.Context, recordUUID string, metadata *ClientMetadata) (*dto.DeleteTelecallingRecordResponse, error) {
	var deleted *models.TelecallingRecord

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		record, err := f.recordRepo.ByUUID(txCtx, recordUUID)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrTelecallingRecordNotFound
		}

		ok, err := f.recordRepo.DeleteByID(txCtx, record.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTelecallingRecordNotFound
		}

		deleted = record
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTelecallingRecordNotFound) {
			return nil, NewBusinessError("TELECALLING_RECORD_NOT_FOUND", "Telecalling record not found", err)
		}
		return nil, NewBusinessError("TELECALLING_RECORD_DELETE_FAILED", "Failed to delete telecalling record", err)
	}

	result := f.reclaimer.Reclaim(ctx, deleted.AppointmentID)

	f.audit.record(ctx, auditEntry{
		action:        models.AuditActionRecordDeleted,
		description:   fmt.Sprintf("Record %s deleted", deleted.AppointmentID),
		recordID:      &deleted.ID,
		appointmentID: deleted.AppointmentID,
		success:       true,
	}, metadata)
	if result != ReclaimResultSkipped {
		f.audit.record(ctx, auditEntry{
			action:        models.AuditActionAppointmentIDReclaim,
			description:   fmt.Sprintf("Appointment id %s reclaim %s", deleted.AppointmentID, result),
			recordID:      &deleted.ID,
			appointmentID: deleted.AppointmentID,
			success:       result != ReclaimResultFailed,
		}, metadata)
	}

	return &dto.DeleteTelecallingRecordResponse{
		UUID:          deleted.UUID.String(),
		AppointmentID: deleted.AppointmentID,
		Reclaimed:     result == ReclaimResultReclaimed,
	}, nil
}

// PreviewNextAppointmentID runs a real allocation. The returned id is
// consumed: a counter value is burned or a recycled id leaves the pool.
func (f *TelecallingFlowImpl) PreviewNextAppointmentID(ctx context.Context, year *int, metadata *ClientMetadata) (*dto.NextAppointmentIDResponse, error) {
	resolved, err := resolveAppointmentYear(year, f.timezone)
	if err != nil {
		return nil, err
	}

	appointmentID, err := f.allocate(ctx, resolved, metadata)
	if err != nil {
		return nil, err
	}

	f.audit.record(ctx, auditEntry{
		action:        models.AuditActionAppointmentIDPreview,
		description:   fmt.Sprintf("Appointment id %s previewed", appointmentID),
		appointmentID: appointmentID,
		success:       true,
	}, metadata)

	return &dto.NextAppointmentIDResponse{AppointmentID: appointmentID}, nil
}

// ExportRecords renders every record matching the filter into an xlsx workbook
func (f *TelecallingFlowImpl) ExportRecords(ctx context.Context, req *dto.ListTelecallingRecordsRequest) (string, []byte, error) {
	filter, _, _, err := listParams(req)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "records"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", err)
	}

	header := []string{"uuid", "appointment_id", "status", "customer_name", "phone_number", "agent_name", "appointment_at", "notes", "created_at", "updated_at"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}

	row := 2
	for offset := 0; ; offset += exportBatchSize {
		records, err := f.recordRepo.ByFilter(ctx, filter, "id ASC", exportBatchSize, offset)
		if err != nil {
			return "", nil, NewBusinessError("TELECALLING_RECORD_LIST_FAILED", "Failed to list telecalling records", err)
		}

		for _, r := range records {
			appointmentAt := ""
			if r.AppointmentAt != nil {
				appointmentAt = r.AppointmentAt.UTC().Format(time.RFC3339)
			}
			values := []string{
				r.UUID.String(),
				r.AppointmentID,
				r.Status,
				r.CustomerName,
				r.PhoneNumber,
				utils.DerefOr(r.AgentName, ""),
				appointmentAt,
				utils.DerefOr(r.Notes, ""),
				r.CreatedAt.UTC().Format(time.RFC3339),
				r.UpdatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, row)
			if err := xl.SetSheetRow(sheet, cellRef, &values); err != nil {
				return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
			}
			row++
		}

		if len(records) < exportBatchSize {
			break
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("telecalling_records_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

// allocate wraps the allocator with the audit trail for failures
func (f *TelecallingFlowImpl) allocate(ctx context.Context, year int, metadata *ClientMetadata) (string, error) {
	appointmentID, err := f.allocator.Next(ctx, year)
	if err == nil {
		return appointmentID, nil
	}

	if IsInvalidAppointmentYear(err) {
		return "", NewBusinessError("INVALID_APPOINTMENT_YEAR", "Appointment year must be between 2000 and 2099", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionAllocationFailed,
		description: fmt.Sprintf("Appointment id allocation for %d failed", year),
		success:     false,
		err:         err,
	}, metadata)
	return "", NewBusinessError("APPOINTMENT_ID_ALLOCATION_FAILED", "Could not allocate an appointment id", err)
}

// insert saves a new record. A unique violation on appointment_id means two
// live records would share an id; it is reported and not retried.
func (f *TelecallingFlowImpl) insert(ctx context.Context, record *models.TelecallingRecord, metadata *ClientMetadata) error {
	err := f.recordRepo.Save(ctx, record)
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		f.logger.ErrorContext(ctx, "allocated appointment id is already held by another record",
			"appointment_id", record.AppointmentID,
			"error", err,
		)
		f.audit.record(ctx, auditEntry{
			action:        models.AuditActionDuplicateAppointment,
			description:   fmt.Sprintf("Appointment id %s collided with an existing record", record.AppointmentID),
			appointmentID: record.AppointmentID,
			success:       false,
			err:           err,
		}, metadata)
		return NewBusinessErrorf("APPOINTMENT_ID_CONFLICT", "Appointment id %s is already in use", fmt.Errorf("%w: %w", ErrDuplicateAppointmentID, err), record.AppointmentID)
	}

	return NewBusinessError("TELECALLING_RECORD_CREATE_FAILED", "Failed to save telecalling record", err)
}

func resolveAppointmentYear(year *int, timezone string) (int, error) {
	if year != nil {
		if !utils.IsValidAppointmentYear(*year) {
			return 0, NewBusinessErrorf("INVALID_APPOINTMENT_YEAR", "Appointment year %d must be between %d and %d", ErrInvalidAppointmentYear,
				*year, utils.MinAppointmentYear, utils.MaxAppointmentYear)
		}
		return *year, nil
	}

	current, err := utils.YearIn(timezone)
	if err != nil {
		return 0, NewBusinessError("INVALID_TIMEZONE", "Failed to resolve the current year", err)
	}
	return current, nil
}

func validateBusinessFields(customerName, phoneNumber string) error {
	if strings.TrimSpace(customerName) == "" {
		return NewBusinessError("VALIDATION_ERROR", "Customer name is required", ErrCustomerNameRequired)
	}
	if strings.TrimSpace(phoneNumber) == "" {
		return NewBusinessError("VALIDATION_ERROR", "Phone number is required", ErrPhoneNumberRequired)
	}
	return nil
}

func listParams(req *dto.ListTelecallingRecordsRequest) (models.TelecallingRecordFilter, int, int, error) {
	filter := models.TelecallingRecordFilter{}
	page, pageSize := 1, utils.DefaultPageSize
	if req == nil {
		return filter, page, pageSize, nil
	}

	if req.Status != nil && *req.Status != "" {
		switch *req.Status {
		case models.TelecallingStatusDraft, models.TelecallingStatusActive:
			filter.Status = req.Status
		default:
			return filter, 0, 0, NewBusinessError("VALIDATION_ERROR", "Status must be draft or active", ErrInvalidRecordStatus)
		}
	}
	if req.Page > 0 {
		page = req.Page
	}
	if req.PageSize > 0 {
		pageSize = min(req.PageSize, utils.MaxPageSize)
	}
	return filter, page, pageSize, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
