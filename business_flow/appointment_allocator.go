package businessflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirphl/telecall/repository"
	"github.com/amirphl/telecall/utils"
)

// AppointmentAllocator hands out appointment ids of the form "YY-SEQ".
// Recycled ids are preferred over fresh counter values. Uniqueness rests
// entirely on the atomic store primitives; there is no in-process lock and a
// failed call is never retried.
type AppointmentAllocator interface {
	Next(ctx context.Context, year int) (string, error)
}

// AppointmentAllocatorImpl implements AppointmentAllocator
type AppointmentAllocatorImpl struct {
	counters repository.YearCounterRepository
	pool     repository.RecycledAppointmentIDRepository
	logger   *slog.Logger
}

// NewAppointmentAllocator creates a new appointment id allocator
func NewAppointmentAllocator(counters repository.YearCounterRepository, pool repository.RecycledAppointmentIDRepository, logger *slog.Logger) AppointmentAllocator {
	return &AppointmentAllocatorImpl{
		counters: counters,
		pool:     pool,
		logger:   logger.With("component", "appointment_allocator"),
	}
}

// Next returns a recycled id if one exists, regardless of the year it was
// issued in. Otherwise it advances the year's counter.
func (a *AppointmentAllocatorImpl) Next(ctx context.Context, year int) (string, error) {
	if !utils.IsValidAppointmentYear(year) {
		return "", ErrInvalidAppointmentYear
	}

	id, ok, err := a.pool.Claim(ctx)
	if err != nil {
		return "", a.fail(ctx, year, "claim", err)
	}
	if ok {
		appointmentIDsAllocated.WithLabelValues(allocationSourcePool).Inc()
		a.logger.DebugContext(ctx, "allocated recycled appointment id", "appointment_id", id, "year", year)
		return id, nil
	}

	if err := a.counters.EnsureBaseline(ctx, year); err != nil {
		return "", a.fail(ctx, year, "ensure_baseline", err)
	}

	seq, err := a.counters.IncrementAndGet(ctx, year)
	if err != nil {
		return "", a.fail(ctx, year, "increment", err)
	}

	id = utils.FormatAppointmentID(year, seq)
	appointmentIDsAllocated.WithLabelValues(allocationSourceCounter).Inc()
	a.logger.DebugContext(ctx, "allocated appointment id", "appointment_id", id, "year", year)
	return id, nil
}

func (a *AppointmentAllocatorImpl) fail(ctx context.Context, year int, step string, err error) error {
	appointmentIDAllocationFailures.Inc()
	a.logger.ErrorContext(ctx, "appointment id allocation failed", "year", year, "step", step, "error", err)
	return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
}
