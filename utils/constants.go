package utils

import (
	"time"
)

// Appointment id constants
const (
	// AppointmentSeqBaseline is the floor every year counter is corrected up to
	// before it is incremented, so the first issued sequence is 10,000,001.
	AppointmentSeqBaseline int64 = 10_000_000

	// AppointmentCentury is added to the two-digit year prefix when an id is
	// mapped back to its year. Only valid for 2000-2099.
	AppointmentCentury = 2000

	// MinAppointmentYear and MaxAppointmentYear bound the years the allocator accepts.
	MinAppointmentYear = 2000
	MaxAppointmentYear = 2099

	// AppointmentCounterPrefix names counter rows ("appointment_id:2025")
	AppointmentCounterPrefix = "appointment_id"

	// AppointmentRedisKeyPrefix namespaces the Redis counter and pool keys
	AppointmentRedisKeyPrefix = "telecall:appointment"
)

// Request handling constants
const (
	// RequestTimeout bounds every store call made on behalf of an HTTP request
	RequestTimeout = 30 * time.Second

	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400

	// DefaultPageSize and MaxPageSize bound list endpoints
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type contextKey string

// Request-scoped context keys
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
)
