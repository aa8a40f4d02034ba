// Package models contains domain entities and business models for the telecalling dashboard
package models

import (
	"time"

	"github.com/google/uuid"
)

// Telecalling record statuses
const (
	TelecallingStatusDraft  = "draft"
	TelecallingStatusActive = "active"
)

// Placeholder values written into a draft until the operator completes the form
const (
	DraftPlaceholderCustomerName = "pending"
	DraftPlaceholderPhoneNumber  = ""
)

// TelecallingRecord is one call-center engagement. AppointmentID is unique
// among live rows; deleting the row frees it for reuse.
type TelecallingRecord struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_telecalling_records_uuid" json:"uuid"`

	AppointmentID string `gorm:"size:32;not null;uniqueIndex:uk_telecalling_records_appointment_id" json:"appointment_id"`
	Status        string `gorm:"size:16;not null;index:idx_telecalling_records_status" json:"status"`

	CustomerName  string     `gorm:"size:255;not null" json:"customer_name"`
	PhoneNumber   string     `gorm:"size:20;not null" json:"phone_number"`
	AgentName     *string    `gorm:"size:255" json:"agent_name,omitempty"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	Notes         *string    `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_telecalling_records_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TelecallingRecord) TableName() string {
	return "telecalling_records"
}

// IsDraft reports whether the record still carries placeholder values
func (r *TelecallingRecord) IsDraft() bool {
	return r.Status == TelecallingStatusDraft
}

// TelecallingRecordFilter represents filter criteria for telecalling record queries
type TelecallingRecordFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	AppointmentID *string
	Status        *string
	PhoneNumber   *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
