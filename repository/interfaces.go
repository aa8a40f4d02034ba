// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/telecall/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// YearCounterRepository is the durable per-year sequence behind appointment ids.
// Every mutation is a single atomic statement; callers never read-then-write.
type YearCounterRepository interface {
	// EnsureBaseline creates the year's counter at the baseline, or raises it to the baseline if it is below
	EnsureBaseline(ctx context.Context, year int) error
	// IncrementAndGet atomically adds one and returns the new value (baseline+1 for an unseen year)
	IncrementAndGet(ctx context.Context, year int) (int64, error)
	// Current returns the last issued value, found=false if the year has no counter yet
	Current(ctx context.Context, year int) (seq int64, found bool, err error)
	// Reset unconditionally sets the year's counter to the baseline
	Reset(ctx context.Context, year int) error
}

// RecycledAppointmentIDRepository is the pool of freed appointment ids
type RecycledAppointmentIDRepository interface {
	// Reclaim adds an id to the pool; inserted=false means it was already there
	Reclaim(ctx context.Context, appointmentID string, year int) (inserted bool, err error)
	// Claim removes and returns the lexically smallest id; ok=false when the pool is empty
	Claim(ctx context.Context) (appointmentID string, ok bool, err error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, limit int) ([]string, error)
	Clear(ctx context.Context) error
}

// AppointmentAllocatorResetter moves a year's counter back to the baseline and
// empties the pool as one atomic unit
type AppointmentAllocatorResetter interface {
	ResetAllocator(ctx context.Context, year int) error
}

// TelecallingRecordRepository defines operations for telecalling records
type TelecallingRecordRepository interface {
	Repository[models.TelecallingRecord, models.TelecallingRecordFilter]
	ByUUID(ctx context.Context, uuid string) (*models.TelecallingRecord, error)
	ByAppointmentID(ctx context.Context, appointmentID string) (*models.TelecallingRecord, error)
	Update(ctx context.Context, record *models.TelecallingRecord) error
	// DeleteByID hard-deletes the row; deleted=false if another caller removed it first
	DeleteByID(ctx context.Context, id uint) (deleted bool, err error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListByAppointmentID(ctx context.Context, appointmentID string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
