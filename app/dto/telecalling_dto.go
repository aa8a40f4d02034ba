package dto

import "time"

// CreateDraftRequest reserves an appointment id. Year defaults to the current year.
type CreateDraftRequest struct {
	Year *int `json:"year,omitempty" validate:"omitempty,min=2000,max=2099"`
}

// CreateTelecallingRecordRequest creates a finished record in one step
type CreateTelecallingRecordRequest struct {
	Year          *int       `json:"year,omitempty" validate:"omitempty,min=2000,max=2099"`
	CustomerName  string     `json:"customer_name" validate:"required,min=2,max=255"`
	PhoneNumber   string     `json:"phone_number" validate:"required,phone_number"`
	AgentName     *string    `json:"agent_name,omitempty" validate:"omitempty,max=255"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateTelecallingRecordRequest fills in a draft or edits a record's business fields.
// The appointment id never changes.
type UpdateTelecallingRecordRequest struct {
	CustomerName  string     `json:"customer_name" validate:"required,min=2,max=255"`
	PhoneNumber   string     `json:"phone_number" validate:"required,phone_number"`
	AgentName     *string    `json:"agent_name,omitempty" validate:"omitempty,max=255"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// TelecallingRecordResponse is the public view of a record
type TelecallingRecordResponse struct {
	UUID          string  `json:"uuid"`
	AppointmentID string  `json:"appointment_id"`
	Status        string  `json:"status"`
	CustomerName  string  `json:"customer_name"`
	PhoneNumber   string  `json:"phone_number"`
	AgentName     *string `json:"agent_name,omitempty"`
	AppointmentAt *string `json:"appointment_at,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ListTelecallingRecordsRequest filters record listings
type ListTelecallingRecordsRequest struct {
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=draft active"`
	Page     int     `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
}

// ListTelecallingRecordsResponse is one page of records
type ListTelecallingRecordsResponse struct {
	Items      []TelecallingRecordResponse `json:"items"`
	Pagination PaginationInfo              `json:"pagination"`
}

// PaginationInfo describes the page returned by a list endpoint
type PaginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// DeleteTelecallingRecordResponse reports a deletion
type DeleteTelecallingRecordResponse struct {
	UUID          string `json:"uuid"`
	AppointmentID string `json:"appointment_id"`
	Reclaimed     bool   `json:"reclaimed"`
}

// NextAppointmentIDResponse carries a previewed id
type NextAppointmentIDResponse struct {
	AppointmentID string `json:"appointment_id"`
}
