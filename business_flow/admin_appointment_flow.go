package businessflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirphl/telecall/app/dto"
	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/repository"
	"github.com/amirphl/telecall/utils"
)

const statusSampleSize = 20

// AdminAppointmentFlow exposes administrative control over the allocator
type AdminAppointmentFlow interface {
	Reset(ctx context.Context, req *dto.ResetAppointmentAllocatorRequest, metadata *ClientMetadata) (*dto.ResetAppointmentAllocatorResponse, error)
	Status(ctx context.Context, year *int) (*dto.AppointmentAllocatorStatusResponse, error)
}

// AdminAppointmentFlowImpl implements AdminAppointmentFlow
type AdminAppointmentFlowImpl struct {
	counters  repository.YearCounterRepository
	pool      repository.RecycledAppointmentIDRepository
	resetter  repository.AppointmentAllocatorResetter
	audit     auditRecorder
	logger    *slog.Logger
	storeName string
	timezone  string
}

// NewAdminAppointmentFlow creates a new admin appointment flow. storeName is
// reported by Status so operators can tell which backend holds the counters.
func NewAdminAppointmentFlow(
	counters repository.YearCounterRepository,
	pool repository.RecycledAppointmentIDRepository,
	resetter repository.AppointmentAllocatorResetter,
	auditRepo repository.AuditLogRepository,
	storeName string,
	timezone string,
	logger *slog.Logger,
) AdminAppointmentFlow {
	logger = logger.With("component", "admin_appointment_flow")
	return &AdminAppointmentFlowImpl{
		counters:  counters,
		pool:      pool,
		resetter:  resetter,
		audit:     auditRecorder{repo: auditRepo, logger: logger},
		logger:    logger,
		storeName: storeName,
		timezone:  timezone,
	}
}

// Reset sets the year's counter back to the baseline and empties the whole
// pool atomically. Running it twice leaves the same state.
func (f *AdminAppointmentFlowImpl) Reset(ctx context.Context, req *dto.ResetAppointmentAllocatorRequest, metadata *ClientMetadata) (*dto.ResetAppointmentAllocatorResponse, error) {
	var requested *int
	if req != nil {
		requested = req.Year
	}
	year, err := resolveAppointmentYear(requested, f.timezone)
	if err != nil {
		return nil, err
	}

	cleared, err := f.pool.Count(ctx)
	if err != nil {
		return nil, NewBusinessError("APPOINTMENT_ALLOCATOR_STATUS_FAILED", "Failed to read recycled pool", err)
	}

	if err := f.resetter.ResetAllocator(ctx, year); err != nil {
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionAllocatorReset,
			description: fmt.Sprintf("Allocator reset for %d failed", year),
			success:     false,
			err:         err,
		}, metadata)
		return nil, NewBusinessError("APPOINTMENT_ALLOCATOR_RESET_FAILED", "Failed to reset appointment allocator", err)
	}

	f.logger.InfoContext(ctx, "appointment allocator reset", "year", year, "cleared_recycled", cleared)
	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionAllocatorReset,
		description: fmt.Sprintf("Allocator reset for %d, %d recycled ids cleared", year, cleared),
		success:     true,
	}, metadata)

	current, _, err := f.counters.Current(ctx, year)
	if err != nil {
		return nil, NewBusinessError("APPOINTMENT_ALLOCATOR_STATUS_FAILED", "Failed to read counter", err)
	}

	return &dto.ResetAppointmentAllocatorResponse{
		Year:            year,
		CounterValue:    current,
		ClearedRecycled: cleared,
	}, nil
}

// Status reports the counter for a year along with the pool
func (f *AdminAppointmentFlowImpl) Status(ctx context.Context, year *int) (*dto.AppointmentAllocatorStatusResponse, error) {
	resolved, err := resolveAppointmentYear(year, f.timezone)
	if err != nil {
		return nil, err
	}

	current, found, err := f.counters.Current(ctx, resolved)
	if err != nil {
		return nil, NewBusinessError("APPOINTMENT_ALLOCATOR_STATUS_FAILED", "Failed to read counter", err)
	}

	count, err := f.pool.Count(ctx)
	if err != nil {
		return nil, NewBusinessError("APPOINTMENT_ALLOCATOR_STATUS_FAILED", "Failed to read recycled pool", err)
	}

	sample, err := f.pool.List(ctx, statusSampleSize)
	if err != nil {
		return nil, NewBusinessError("APPOINTMENT_ALLOCATOR_STATUS_FAILED", "Failed to read recycled pool", err)
	}

	resp := &dto.AppointmentAllocatorStatusResponse{
		Year:           resolved,
		Store:          f.storeName,
		NextSequence:   nextSequence(current, found),
		RecycledCount:  count,
		RecycledSample: sample,
	}
	if found {
		resp.CounterValue = &current
	}
	return resp, nil
}

// nextSequence is the value the counter would issue next, ignoring the pool
func nextSequence(current int64, found bool) int64 {
	if !found || current < utils.AppointmentSeqBaseline {
		return utils.AppointmentSeqBaseline + 1
	}
	return current + 1
}
