package testing

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *gorm.DB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *gorm.DB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// NewTelecallingRecord builds an unsaved active record holding appointmentID
func NewTelecallingRecord(appointmentID string) *models.TelecallingRecord {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)
	now := utils.UTCNow()

	return &models.TelecallingRecord{
		UUID:          uuid.New(),
		AppointmentID: appointmentID,
		Status:        models.TelecallingStatusActive,
		CustomerName:  "John Doe",
		PhoneNumber:   "+989" + randomDigits,
		AgentName:     utils.ToPtr("Agent Smith"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTelecallingRecord inserts an active record holding appointmentID
func (tf *TestFixtures) CreateTelecallingRecord(ctx context.Context, appointmentID string) (*models.TelecallingRecord, error) {
	record := NewTelecallingRecord(appointmentID)
	if err := tf.DB.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert telecalling record %s: %w", appointmentID, err)
	}
	return record, nil
}

// SeedCounter writes a counter row directly, bypassing the baseline correction
func (tf *TestFixtures) SeedCounter(ctx context.Context, year int, seq int64) error {
	counter := &models.YearCounter{
		Name: models.YearCounterName(utils.AppointmentCounterPrefix, year),
		Year: year,
		Seq:  seq,
	}
	if err := tf.DB.WithContext(ctx).Save(counter).Error; err != nil {
		return fmt.Errorf("failed to seed counter for %d: %w", year, err)
	}
	return nil
}

// SeedRecycled puts ids straight into the pool
func (tf *TestFixtures) SeedRecycled(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		year, err := utils.AppointmentYear(id)
		if err != nil {
			return err
		}
		row := &models.RecycledAppointmentID{AppointmentID: id, Year: year}
		if err := tf.DB.WithContext(ctx).Create(row).Error; err != nil {
			return fmt.Errorf("failed to seed recycled id %s: %w", id, err)
		}
	}
	return nil
}
