package businessflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amirphl/telecall/repository"
	"github.com/amirphl/telecall/utils"
)

// ReclaimResult is the outcome of returning an id to the pool
type ReclaimResult string

const (
	ReclaimResultReclaimed ReclaimResult = "reclaimed"
	ReclaimResultDuplicate ReclaimResult = "duplicate"
	ReclaimResultSkipped   ReclaimResult = "skipped"
	ReclaimResultFailed    ReclaimResult = "failed"
)

// AppointmentReclaimer puts the id of a deleted record back into the pool.
// It never returns an error: the deletion that triggered it has already
// committed and must succeed regardless.
type AppointmentReclaimer interface {
	Reclaim(ctx context.Context, appointmentID string) ReclaimResult
}

// AppointmentReclaimerImpl implements AppointmentReclaimer
type AppointmentReclaimerImpl struct {
	pool   repository.RecycledAppointmentIDRepository
	logger *slog.Logger
}

// NewAppointmentReclaimer creates a new reclaimer
func NewAppointmentReclaimer(pool repository.RecycledAppointmentIDRepository, logger *slog.Logger) AppointmentReclaimer {
	return &AppointmentReclaimerImpl{
		pool:   pool,
		logger: logger.With("component", "appointment_reclaimer"),
	}
}

func (r *AppointmentReclaimerImpl) Reclaim(ctx context.Context, appointmentID string) ReclaimResult {
	result := r.reclaim(ctx, strings.TrimSpace(appointmentID))
	appointmentIDsReclaimed.WithLabelValues(string(result)).Inc()
	return result
}

func (r *AppointmentReclaimerImpl) reclaim(ctx context.Context, appointmentID string) ReclaimResult {
	if appointmentID == "" {
		r.logger.DebugContext(ctx, "record had no appointment id, nothing to reclaim")
		return ReclaimResultSkipped
	}

	// The year is recovered from the two digit prefix, so this only holds for 2000-2099
	year, err := utils.AppointmentYear(appointmentID)
	if err != nil {
		r.logger.DebugContext(ctx, "skipping reclaim of malformed appointment id", "appointment_id", appointmentID, "error", err)
		return ReclaimResultSkipped
	}

	inserted, err := r.pool.Reclaim(ctx, appointmentID, year)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to reclaim appointment id", "appointment_id", appointmentID, "year", year, "error", err)
		return ReclaimResultFailed
	}
	if !inserted {
		r.logger.WarnContext(ctx, "appointment id was already in the recycled pool", "appointment_id", appointmentID, "year", year)
		return ReclaimResultDuplicate
	}

	r.logger.InfoContext(ctx, "appointment id reclaimed", "appointment_id", appointmentID, "year", year)
	return ReclaimResultReclaimed
}
