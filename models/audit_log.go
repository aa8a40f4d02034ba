package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Action        string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	RecordID      *uint           `gorm:"index:idx_audit_record_id" json:"record_id,omitempty"`
	AppointmentID *string         `gorm:"size:32;index:idx_audit_appointment_id" json:"appointment_id,omitempty"`
	Description   *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress     *string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent     *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID     *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata      json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success       *bool           `gorm:"default:true" json:"success"`
	ErrorMessage  *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time       `gorm:"index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionDraftCreated         = "telecalling_draft_created"
	AuditActionDraftCompleted       = "telecalling_draft_completed"
	AuditActionRecordCreated        = "telecalling_record_created"
	AuditActionRecordUpdated        = "telecalling_record_updated"
	AuditActionRecordDeleted        = "telecalling_record_deleted"
	AuditActionAppointmentIDPreview = "appointment_id_previewed"
	AuditActionAppointmentIDReclaim = "appointment_id_reclaimed"
	AuditActionAllocatorReset       = "appointment_allocator_reset"
	AuditActionAllocationFailed     = "appointment_allocation_failed"
	AuditActionDuplicateAppointment = "appointment_id_duplicate"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	Action        *string
	RecordID      *uint
	AppointmentID *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
