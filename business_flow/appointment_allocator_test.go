package businessflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/amirphl/telecall/repository"
	testutil "github.com/amirphl/telecall/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAllocator_IssuesSequentialIDsFromBaseline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.allocator.Next(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "25-10000001", first)

	second, err := env.allocator.Next(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "25-10000002", second)

	other, err := env.allocator.Next(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, "26-10000001", other)
}

func TestAllocator_PrefersRecycledIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.fixtures.SeedRecycled(ctx, "25-10000009", "24-10000005"))

	got, err := env.allocator.Next(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "24-10000005", got, "smallest recycled id wins even from another year")

	got, err = env.allocator.Next(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "25-10000009", got)

	got, err = env.allocator.Next(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "25-10000001", got)
}

func TestAllocator_CorrectsCounterBelowBaseline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.fixtures.SeedCounter(ctx, 2025, 5))

	got, err := env.allocator.Next(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "25-10000001", got)
}

func TestAllocator_RejectsYearsOutsideCentury(t *testing.T) {
	env := newTestEnv(t)

	for _, year := range []int{1999, 2100, 0, -5} {
		t.Run(fmt.Sprint(year), func(t *testing.T) {
			_, err := env.allocator.Next(context.Background(), year)
			assert.True(t, businessflow.IsInvalidAppointmentYear(err))
		})
	}
}

func TestAllocator_StoreErrorsSurfaceAsAllocationFailed(t *testing.T) {
	t.Run("pool claim fails", func(t *testing.T) {
		counters := &failingCounters{}
		allocator := businessflow.NewAppointmentAllocator(counters, failingPool{}, discardLogger())

		_, err := allocator.Next(context.Background(), 2025)
		require.Error(t, err)
		assert.True(t, businessflow.IsAllocationFailed(err))
		assert.True(t, errors.Is(err, errStoreDown))
		assert.Zero(t, counters.ensureCalls, "counter must not be touched after a failed claim")
	})

	t.Run("increment fails", func(t *testing.T) {
		env := newTestEnv(t)
		allocator := businessflow.NewAppointmentAllocator(&failingCounters{}, env.pool, discardLogger())

		_, err := allocator.Next(context.Background(), 2025)
		require.Error(t, err)
		assert.True(t, businessflow.IsAllocationFailed(err))
		assert.True(t, errors.Is(err, errStoreDown))
	})
}

func TestAllocator_ConcurrentCallsNeverShareAnID(t *testing.T) {
	stores := map[string]func(t *testing.T) (repository.YearCounterRepository, repository.RecycledAppointmentIDRepository){
		"sql": func(t *testing.T) (repository.YearCounterRepository, repository.RecycledAppointmentIDRepository) {
			env := newTestEnv(t)
			return env.counters, env.pool
		},
		"redis": func(t *testing.T) (repository.YearCounterRepository, repository.RecycledAppointmentIDRepository) {
			_, client, cleanup, err := testutil.NewMiniRedis()
			require.NoError(t, err)
			t.Cleanup(cleanup)
			return repository.NewRedisYearCounterRepository(client, ""), repository.NewRedisRecycledAppointmentIDRepository(client, "")
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			counters, pool := newStore(t)
			allocator := businessflow.NewAppointmentAllocator(counters, pool, discardLogger())
			ctx := context.Background()

			recycled := []string{"24-10000003", "24-10000007", "23-10000001"}
			for _, id := range recycled {
				_, err := pool.Reclaim(ctx, id, 0)
				require.NoError(t, err)
			}

			const callers = 80
			var mu sync.Mutex
			issued := make(map[string]int, callers)

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < callers; i++ {
				g.Go(func() error {
					id, err := allocator.Next(gctx, 2025)
					if err != nil {
						return err
					}
					mu.Lock()
					issued[id]++
					mu.Unlock()
					return nil
				})
			}
			require.NoError(t, g.Wait())

			require.Len(t, issued, callers)
			for id, n := range issued {
				assert.Equal(t, 1, n, "id %s issued more than once", id)
			}
			for _, id := range recycled {
				assert.Contains(t, issued, id)
			}

			remaining, err := pool.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, remaining)
		})
	}
}
