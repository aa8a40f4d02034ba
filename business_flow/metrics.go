package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation sources
const (
	allocationSourcePool    = "pool"
	allocationSourceCounter = "counter"
)

var (
	// Appointment ids handed out, partitioned by where they came from
	appointmentIDsAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_ids_allocated_total",
			Help: "Total number of appointment ids allocated",
		},
		[]string{"source"},
	)

	appointmentIDAllocationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appointment_id_allocation_failures_total",
			Help: "Total number of appointment id allocations that failed on a store error",
		},
	)

	// Outcome of returning a deleted record's id to the pool
	appointmentIDsReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_ids_reclaimed_total",
			Help: "Total number of appointment id reclaim attempts by result",
		},
		[]string{"result"},
	)
)
