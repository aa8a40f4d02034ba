// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/amirphl/telecall/app/dto"
	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/repository"
	"github.com/amirphl/telecall/utils"
)

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	AdminID    *uint             `json:"admin_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetAdminID records which admin performed the request
func (cm *ClientMetadata) SetAdminID(adminID uint) {
	cm.AdminID = &adminID
}

// ToTelecallingRecordResponse converts a record model to its API representation
func ToTelecallingRecordResponse(record models.TelecallingRecord) dto.TelecallingRecordResponse {
	resp := dto.TelecallingRecordResponse{
		UUID:          record.UUID.String(),
		AppointmentID: record.AppointmentID,
		Status:        record.Status,
		CustomerName:  record.CustomerName,
		PhoneNumber:   record.PhoneNumber,
		AgentName:     record.AgentName,
		Notes:         record.Notes,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     record.UpdatedAt.Format(time.RFC3339),
	}
	if record.AppointmentAt != nil {
		resp.AppointmentAt = utils.ToPtr(record.AppointmentAt.Format(time.RFC3339))
	}
	return resp
}

// auditEntry describes one audit log row
type auditEntry struct {
	action        string
	description   string
	recordID      *uint
	appointmentID string
	success       bool
	err           error
}

// auditRecorder writes audit rows outside of any transaction. A failed write
// is logged and never fails the operation being audited.
type auditRecorder struct {
	repo   repository.AuditLogRepository
	logger *slog.Logger
}

func (a auditRecorder) record(ctx context.Context, entry auditEntry, metadata *ClientMetadata) {
	if a.repo == nil {
		return
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		Action:      entry.action,
		RecordID:    entry.recordID,
		Description: &entry.description,
		Success:     utils.ToPtr(entry.success),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	if entry.appointmentID != "" {
		audit.AppointmentID = utils.ToPtr(entry.appointmentID)
	}
	if entry.err != nil {
		audit.ErrorMessage = utils.ToPtr(entry.err.Error())
	}

	if metadata != nil {
		if endpoint, ok := ctx.Value(utils.EndpointKey).(string); ok && endpoint != "" {
			metadata.AddAdditional("endpoint", endpoint)
		}
		if metadata.RequestID != "" {
			audit.RequestID = utils.ToPtr(metadata.RequestID)
		}
		if metadata.AdminID != nil || len(metadata.Additional) > 0 {
			if raw, err := json.Marshal(metadata); err == nil {
				audit.Metadata = raw
			}
		}
	}
	if audit.RequestID == nil {
		if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && requestID != "" {
			audit.RequestID = &requestID
		}
	}

	if err := a.repo.Save(ctx, audit); err != nil {
		a.logger.WarnContext(ctx, "failed to write audit log", "action", entry.action, "error", err)
	}
}
