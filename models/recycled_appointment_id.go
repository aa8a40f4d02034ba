package models

import "time"

// RecycledAppointmentID is an appointment id freed by a deleted record and
// waiting to be claimed again. The allocator pops the lexically smallest one.
type RecycledAppointmentID struct {
	AppointmentID string    `gorm:"primaryKey;size:32" json:"appointment_id"`
	Year          int       `gorm:"not null" json:"year"`
	CreatedAt     time.Time `json:"created_at"`
}

func (RecycledAppointmentID) TableName() string { return "recycled_appointment_ids" }
