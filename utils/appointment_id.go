package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedAppointmentID = errors.New("malformed appointment id")

// FormatAppointmentID renders "<YY>-<SEQ>". SEQ is not padded; its width grows
// once it passes 99,999,999.
func FormatAppointmentID(year int, seq int64) string {
	return fmt.Sprintf("%02d-%d", year%100, seq)
}

// AppointmentYear maps the two-digit prefix of an appointment id back to a
// four-digit year as 2000+YY.
func AppointmentYear(appointmentID string) (int, error) {
	prefix, seq, ok := strings.Cut(strings.TrimSpace(appointmentID), "-")
	if !ok || len(prefix) != 2 || seq == "" {
		return 0, ErrMalformedAppointmentID
	}
	yy, err := strconv.ParseUint(prefix, 10, 8)
	if err != nil {
		return 0, ErrMalformedAppointmentID
	}
	if _, err := strconv.ParseUint(seq, 10, 64); err != nil {
		return 0, ErrMalformedAppointmentID
	}
	return AppointmentCentury + int(yy), nil
}

// IsValidAppointmentYear reports whether year can round-trip through the
// two-digit prefix.
func IsValidAppointmentYear(year int) bool {
	return year >= MinAppointmentYear && year <= MaxAppointmentYear
}
