package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/telecall/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TelecallingRecordRepositoryImpl implements TelecallingRecordRepository interface
type TelecallingRecordRepositoryImpl struct {
	*BaseRepository[models.TelecallingRecord, models.TelecallingRecordFilter]
}

// NewTelecallingRecordRepository creates a new telecalling record repository
func NewTelecallingRecordRepository(db *gorm.DB) TelecallingRecordRepository {
	return &TelecallingRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TelecallingRecord, models.TelecallingRecordFilter](db),
	}
}

// ByUUID retrieves a record by its public identifier
func (r *TelecallingRecordRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.TelecallingRecord, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	records, err := r.ByFilter(ctx, models.TelecallingRecordFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	return records[0], nil
}

// ByAppointmentID retrieves the live record holding an appointment id
func (r *TelecallingRecordRepositoryImpl) ByAppointmentID(ctx context.Context, appointmentID string) (*models.TelecallingRecord, error) {
	records, err := r.ByFilter(ctx, models.TelecallingRecordFilter{AppointmentID: &appointmentID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	return records[0], nil
}

// Update persists the business fields and status of an existing record
func (r *TelecallingRecordRepositoryImpl) Update(ctx context.Context, record *models.TelecallingRecord) error {
	db := r.getDB(ctx)

	err := db.Model(&models.TelecallingRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"status":         record.Status,
			"customer_name":  record.CustomerName,
			"phone_number":   record.PhoneNumber,
			"agent_name":     record.AgentName,
			"appointment_at": record.AppointmentAt,
			"notes":          record.Notes,
			"updated_at":     record.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update telecalling record %d: %w", record.ID, err)
	}

	return nil
}

// DeleteByID removes the row. Only the caller whose statement affected the
// row observes deleted=true.
func (r *TelecallingRecordRepositoryImpl) DeleteByID(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)

	result := db.Where("id = ?", id).Delete(&models.TelecallingRecord{})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete telecalling record %d: %w", id, result.Error)
	}

	return result.RowsAffected == 1, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *TelecallingRecordRepositoryImpl) applyFilter(query *gorm.DB, filter models.TelecallingRecordFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.AppointmentID != nil {
		query = query.Where("appointment_id = ?", *filter.AppointmentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves records based on filter criteria
func (r *TelecallingRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.TelecallingRecordFilter, orderBy string, limit, offset int) ([]*models.TelecallingRecord, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.TelecallingRecord{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []*models.TelecallingRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list telecalling records: %w", err)
	}

	return records, nil
}

// Count returns the number of records matching the filter
func (r *TelecallingRecordRepositoryImpl) Count(ctx context.Context, filter models.TelecallingRecordFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.TelecallingRecord{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count telecalling records: %w", err)
	}

	return count, nil
}

// Exists checks if any record matching the filter exists
func (r *TelecallingRecordRepositoryImpl) Exists(ctx context.Context, filter models.TelecallingRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
