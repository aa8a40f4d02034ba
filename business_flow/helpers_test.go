package businessflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/amirphl/telecall/repository"
	testutil "github.com/amirphl/telecall/testing"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	db        *gorm.DB
	fixtures  *testutil.TestFixtures
	counters  repository.YearCounterRepository
	pool      repository.RecycledAppointmentIDRepository
	records   repository.TelecallingRecordRepository
	audits    repository.AuditLogRepository
	allocator businessflow.AppointmentAllocator
	reclaimer businessflow.AppointmentReclaimer
	flow      businessflow.TelecallingFlow
	admin     businessflow.AdminAppointmentFlow
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		fixtures: testutil.NewTestFixtures(db),
		counters: repository.NewYearCounterRepository(db, ""),
		pool:     repository.NewRecycledAppointmentIDRepository(db),
		records:  repository.NewTelecallingRecordRepository(db),
		audits:   repository.NewAuditLogRepository(db),
	}
	env.allocator = businessflow.NewAppointmentAllocator(env.counters, env.pool, discardLogger())
	env.reclaimer = businessflow.NewAppointmentReclaimer(env.pool, discardLogger())
	env.flow = businessflow.NewTelecallingFlow(db, env.records, env.audits, env.allocator, env.reclaimer, "UTC", discardLogger())
	env.admin = businessflow.NewAdminAppointmentFlow(
		env.counters,
		env.pool,
		repository.NewSQLAppointmentAllocatorResetter(db, env.counters, env.pool),
		env.audits,
		"sql",
		"UTC",
		discardLogger(),
	)
	return env
}

// failingPool is a pool whose every call fails
type failingPool struct{}

func (failingPool) Reclaim(context.Context, string, int) (bool, error) { return false, errStoreDown }
func (failingPool) Claim(context.Context) (string, bool, error)        { return "", false, errStoreDown }
func (failingPool) Count(context.Context) (int64, error)               { return 0, errStoreDown }
func (failingPool) List(context.Context, int) ([]string, error)        { return nil, errStoreDown }
func (failingPool) Clear(context.Context) error                        { return errStoreDown }

// failingCounters is a counter store whose increments fail
type failingCounters struct {
	ensureCalls int
}

func (f *failingCounters) EnsureBaseline(context.Context, int) error { f.ensureCalls++; return nil }
func (f *failingCounters) IncrementAndGet(context.Context, int) (int64, error) {
	return 0, errStoreDown
}
func (f *failingCounters) Current(context.Context, int) (int64, bool, error) { return 0, false, nil }
func (f *failingCounters) Reset(context.Context, int) error                  { return errStoreDown }

// stubAllocator returns a fixed result
type stubAllocator struct {
	id    string
	err   error
	calls int
}

func (s *stubAllocator) Next(context.Context, int) (string, error) {
	s.calls++
	return s.id, s.err
}

func intPtr(v int) *int { return &v }
