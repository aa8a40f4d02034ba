package dto

// ResetAppointmentAllocatorRequest resets the given year, or the current one when omitted
type ResetAppointmentAllocatorRequest struct {
	Year *int `json:"year,omitempty" validate:"omitempty,min=2000,max=2099"`
}

// ResetAppointmentAllocatorResponse reports the state after a reset
type ResetAppointmentAllocatorResponse struct {
	Year            int   `json:"year"`
	CounterValue    int64 `json:"counter_value"`
	ClearedRecycled int64 `json:"cleared_recycled"`
}

// AppointmentAllocatorStatusResponse is a snapshot of one year's counter and the pool
type AppointmentAllocatorStatusResponse struct {
	Year           int      `json:"year"`
	Store          string   `json:"store"`
	CounterValue   *int64   `json:"counter_value"`
	NextSequence   int64    `json:"next_sequence"`
	RecycledCount  int64    `json:"recycled_count"`
	RecycledSample []string `json:"recycled_sample"`
}
