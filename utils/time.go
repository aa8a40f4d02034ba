// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// YearIn returns the current calendar year in the named location.
// An empty name means UTC.
func YearIn(location string) (int, error) {
	if location == "" {
		return UTCNow().Year(), nil
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return 0, err
	}
	return time.Now().In(loc).Year(), nil
}
