package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/amirphl/telecall/repository"
	testutil "github.com/amirphl/telecall/testing"
	"github.com/amirphl/telecall/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type appointmentStore struct {
	counters repository.YearCounterRepository
	pool     repository.RecycledAppointmentIDRepository
	resetter repository.AppointmentAllocatorResetter
	// seedCounter writes a raw counter value without baseline correction
	seedCounter func(t *testing.T, year int, seq int64)
}

func newSQLStore(t *testing.T) appointmentStore {
	t.Helper()
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)

	counters := repository.NewYearCounterRepository(db, "")
	pool := repository.NewRecycledAppointmentIDRepository(db)
	fixtures := testutil.NewTestFixtures(db)

	return appointmentStore{
		counters: counters,
		pool:     pool,
		resetter: repository.NewSQLAppointmentAllocatorResetter(db, counters, pool),
		seedCounter: func(t *testing.T, year int, seq int64) {
			require.NoError(t, fixtures.SeedCounter(context.Background(), year, seq))
		},
	}
}

func newRedisStore(t *testing.T) appointmentStore {
	t.Helper()
	mr, client, cleanup, err := testutil.NewMiniRedis()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return appointmentStore{
		counters: repository.NewRedisYearCounterRepository(client, ""),
		pool:     repository.NewRedisRecycledAppointmentIDRepository(client, ""),
		resetter: repository.NewRedisAppointmentAllocatorResetter(client, ""),
		seedCounter: func(t *testing.T, year int, seq int64) {
			require.NoError(t, mr.Set(fmt.Sprintf("%s:counter:%d", utils.AppointmentRedisKeyPrefix, year), fmt.Sprint(seq)))
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s appointmentStore)) {
	t.Run("sql", func(t *testing.T) { fn(t, newSQLStore(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
}

const baseline = utils.AppointmentSeqBaseline

func TestYearCounter_FirstIncrementStartsAfterBaseline(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		ctx := context.Background()

		_, found, err := s.counters.Current(ctx, 2025)
		require.NoError(t, err)
		assert.False(t, found)

		seq, err := s.counters.IncrementAndGet(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, baseline+1, seq)

		seq, err = s.counters.IncrementAndGet(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, baseline+2, seq)

		current, found, err := s.counters.Current(ctx, 2025)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, baseline+2, current)
	})
}

func TestYearCounter_YearsAreIndependent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := s.counters.IncrementAndGet(ctx, 2025)
			require.NoError(t, err)
		}

		seq, err := s.counters.IncrementAndGet(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, baseline+1, seq)
	})
}

func TestYearCounter_BaselineCorrection(t *testing.T) {
	tests := []struct {
		name        string
		seeded      int64
		wantCurrent int64
		wantNext    int64
	}{
		{name: "below baseline is raised", seeded: 5, wantCurrent: baseline, wantNext: baseline + 1},
		{name: "zero is raised", seeded: 0, wantCurrent: baseline, wantNext: baseline + 1},
		{name: "at baseline is kept", seeded: baseline, wantCurrent: baseline, wantNext: baseline + 1},
		{name: "above baseline is kept", seeded: baseline + 50, wantCurrent: baseline + 50, wantNext: baseline + 51},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachStore(t, func(t *testing.T, s appointmentStore) {
				ctx := context.Background()
				s.seedCounter(t, 2025, tt.seeded)

				require.NoError(t, s.counters.EnsureBaseline(ctx, 2025))
				current, found, err := s.counters.Current(ctx, 2025)
				require.NoError(t, err)
				require.True(t, found)
				assert.Equal(t, tt.wantCurrent, current)

				seq, err := s.counters.IncrementAndGet(ctx, 2025)
				require.NoError(t, err)
				assert.Equal(t, tt.wantNext, seq)
			})
		})
	}
}

func TestYearCounter_IncrementCorrectsStaleRowWithoutEnsure(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		s.seedCounter(t, 2025, 42)

		seq, err := s.counters.IncrementAndGet(context.Background(), 2025)
		require.NoError(t, err)
		assert.Equal(t, baseline+1, seq)
	})
}

func TestYearCounter_ConcurrentIncrementsAreUnique(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		const workers = 64
		ctx := context.Background()

		var mu sync.Mutex
		seen := make(map[int64]struct{}, workers)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				if err := s.counters.EnsureBaseline(gctx, 2025); err != nil {
					return err
				}
				seq, err := s.counters.IncrementAndGet(gctx, 2025)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Len(t, seen, workers)
		current, _, err := s.counters.Current(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, baseline+workers, current)
	})
}

func TestRecycledPool_ReclaimIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		ctx := context.Background()

		inserted, err := s.pool.Reclaim(ctx, "25-10000007", 2025)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = s.pool.Reclaim(ctx, "25-10000007", 2025)
		require.NoError(t, err)
		assert.False(t, inserted)

		count, err := s.pool.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestRecycledPool_ClaimsInLexicalOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		ctx := context.Background()

		for _, id := range []string{"25-10000009", "24-10000003", "25-100000000", "25-10000002"} {
			_, err := s.pool.Reclaim(ctx, id, 0)
			require.NoError(t, err)
		}

		listed, err := s.pool.List(ctx, 0)
		require.NoError(t, err)
		want := []string{"24-10000003", "25-100000000", "25-10000002", "25-10000009"}
		assert.Equal(t, want, listed)

		for _, id := range want {
			got, ok, err := s.pool.Claim(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, id, got)
		}

		_, ok, err := s.pool.Claim(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRecycledPool_ConcurrentClaimsAreExactlyOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		const entries = 20
		const claimers = 50
		ctx := context.Background()

		for i := 1; i <= entries; i++ {
			_, err := s.pool.Reclaim(ctx, utils.FormatAppointmentID(2025, baseline+int64(i)), 2025)
			require.NoError(t, err)
		}

		var mu sync.Mutex
		claimed := make(map[string]int)
		empty := 0

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < claimers; i++ {
			g.Go(func() error {
				id, ok, err := s.pool.Claim(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if !ok {
					empty++
					return nil
				}
				claimed[id]++
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Len(t, claimed, entries)
		for id, n := range claimed {
			assert.Equal(t, 1, n, "id %s claimed more than once", id)
		}
		assert.Equal(t, claimers-entries, empty)
	})
}

func TestAllocatorReset_IsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			_, err := s.counters.IncrementAndGet(ctx, 2025)
			require.NoError(t, err)
		}
		_, err := s.pool.Reclaim(ctx, "25-10000002", 2025)
		require.NoError(t, err)
		_, err = s.pool.Reclaim(ctx, "24-10000010", 2024)
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			require.NoError(t, s.resetter.ResetAllocator(ctx, 2025))

			current, found, err := s.counters.Current(ctx, 2025)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, baseline, current)

			count, err := s.pool.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		}

		seq, err := s.counters.IncrementAndGet(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, baseline+1, seq)
	})
}

func TestAllocatorReset_CreatesMissingCounter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s appointmentStore) {
		ctx := context.Background()

		require.NoError(t, s.resetter.ResetAllocator(ctx, 2030))

		current, found, err := s.counters.Current(ctx, 2030)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, baseline, current)
	})
}
