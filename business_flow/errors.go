// Package businessflow contains the core business logic and use cases for the telecalling dashboard
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Appointment id allocation errors
	ErrAllocationFailed       = errors.New("appointment id allocation failed")
	ErrDuplicateAppointmentID = errors.New("appointment id already held by another record")
	ErrInvalidAppointmentYear = errors.New("appointment year must be between 2000 and 2099")

	// Telecalling record errors
	ErrTelecallingRecordNotFound = errors.New("telecalling record not found")
	ErrTelecallingRecordRequired = errors.New("telecalling record request is required")
	ErrCustomerNameRequired      = errors.New("customer name is required")
	ErrPhoneNumberRequired       = errors.New("phone number is required")
	ErrInvalidRecordStatus       = errors.New("invalid telecalling record status")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsAllocationFailed(err error) bool {
	return errors.Is(err, ErrAllocationFailed)
}

func IsDuplicateAppointmentID(err error) bool {
	return errors.Is(err, ErrDuplicateAppointmentID)
}

func IsInvalidAppointmentYear(err error) bool {
	return errors.Is(err, ErrInvalidAppointmentYear)
}

func IsTelecallingRecordNotFound(err error) bool {
	return errors.Is(err, ErrTelecallingRecordNotFound)
}

func IsCustomerNameRequired(err error) bool {
	return errors.Is(err, ErrCustomerNameRequired)
}

func IsPhoneNumberRequired(err error) bool {
	return errors.Is(err, ErrPhoneNumberRequired)
}

func IsInvalidRecordStatus(err error) bool {
	return errors.Is(err, ErrInvalidRecordStatus)
}

func IsTelecallingRecordRequired(err error) bool {
	return errors.Is(err, ErrTelecallingRecordRequired)
}
