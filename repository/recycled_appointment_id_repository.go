package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/telecall/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecycledAppointmentIDRepositoryImpl implements RecycledAppointmentIDRepository
type RecycledAppointmentIDRepositoryImpl struct {
	*BaseRepository[models.RecycledAppointmentID, any]
}

func NewRecycledAppointmentIDRepository(db *gorm.DB) RecycledAppointmentIDRepository {
	return &RecycledAppointmentIDRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RecycledAppointmentID, any](db),
	}
}

// orderColumn compares ids byte-wise. PostgreSQL needs the "C" collation so a
// locale collation never reorders them; SQLite compares BINARY by default.
func orderColumn(db *gorm.DB) string {
	if isPostgres(db) {
		return `appointment_id COLLATE "C"`
	}
	return "appointment_id"
}

func claimSQL(db *gorm.DB) string {
	lock := ""
	if isPostgres(db) {
		lock = " FOR UPDATE SKIP LOCKED"
	}
	return "DELETE FROM recycled_appointment_ids WHERE appointment_id = (" +
		"SELECT appointment_id FROM recycled_appointment_ids ORDER BY " + orderColumn(db) + " LIMIT 1" + lock +
		") RETURNING appointment_id"
}

func (r *RecycledAppointmentIDRepositoryImpl) Reclaim(ctx context.Context, appointmentID string, year int) (bool, error) {
	db := r.getDB(ctx)

	row := models.RecycledAppointmentID{
		AppointmentID: appointmentID,
		Year:          year,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to reclaim appointment id %s: %w", appointmentID, result.Error)
	}

	return result.RowsAffected == 1, nil
}

// Claim pops the smallest id in one statement. Under PostgreSQL a concurrent
// claimer skips the locked row and takes the next one instead of waiting.
func (r *RecycledAppointmentIDRepositoryImpl) Claim(ctx context.Context) (string, bool, error) {
	db := r.getDB(ctx)

	var ids []string
	if err := db.Raw(claimSQL(db)).Scan(&ids).Error; err != nil {
		return "", false, fmt.Errorf("failed to claim recycled appointment id: %w", err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}

	return ids[0], true, nil
}

func (r *RecycledAppointmentIDRepositoryImpl) Count(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := db.Model(&models.RecycledAppointmentID{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count recycled appointment ids: %w", err)
	}
	return count, nil
}

// List returns pool entries in claim order
func (r *RecycledAppointmentIDRepositoryImpl) List(ctx context.Context, limit int) ([]string, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.RecycledAppointmentID{}).Order(orderColumn(db))
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []string
	if err := query.Pluck("appointment_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list recycled appointment ids: %w", err)
	}
	return ids, nil
}

func (r *RecycledAppointmentIDRepositoryImpl) Clear(ctx context.Context) error {
	db := r.getDB(ctx)

	if err := db.Exec("DELETE FROM recycled_appointment_ids").Error; err != nil {
		return fmt.Errorf("failed to clear recycled appointment ids: %w", err)
	}
	return nil
}

// SQLAppointmentAllocatorResetter resets counter and pool inside one database transaction
type SQLAppointmentAllocatorResetter struct {
	db       *gorm.DB
	counters YearCounterRepository
	pool     RecycledAppointmentIDRepository
}

func NewSQLAppointmentAllocatorResetter(db *gorm.DB, counters YearCounterRepository, pool RecycledAppointmentIDRepository) *SQLAppointmentAllocatorResetter {
	return &SQLAppointmentAllocatorResetter{db: db, counters: counters, pool: pool}
}

func (s *SQLAppointmentAllocatorResetter) ResetAllocator(ctx context.Context, year int) error {
	return WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.counters.Reset(txCtx, year); err != nil {
			return err
		}
		return s.pool.Clear(txCtx)
	})
}
