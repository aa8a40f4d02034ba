package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/amirphl/telecall/repository"
	testutil "github.com/amirphl/telecall/testing"
	"github.com/amirphl/telecall/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Runs against a real PostgreSQL server when TEST_DB_HOST is set.
func TestPostgres_ConcurrentAllocationPrimitives(t *testing.T) {
	if !testutil.PostgresAvailable() {
		t.Skip("TEST_DB_HOST not set")
	}

	err := testutil.TestWithDB(func(tdb *testutil.TestDB) error {
		ctx := context.Background()
		counters := repository.NewYearCounterRepository(tdb.DB, "")
		pool := repository.NewRecycledAppointmentIDRepository(tdb.DB)

		const workers = 100
		var mu sync.Mutex
		seen := make(map[int64]struct{}, workers)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				if err := counters.EnsureBaseline(gctx, 2025); err != nil {
					return err
				}
				seq, err := counters.IncrementAndGet(gctx, 2025)
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

		for i := 1; i <= 30; i++ {
			_, err := pool.Reclaim(ctx, utils.FormatAppointmentID(2024, utils.AppointmentSeqBaseline+int64(i)), 2024)
			require.NoError(t, err)
		}

		claimed := make(map[string]int)
		g, gctx = errgroup.WithContext(ctx)
		for i := 0; i < 60; i++ {
			g.Go(func() error {
				id, ok, err := pool.Claim(gctx)
				if err != nil || !ok {
					return err
				}
				mu.Lock()
				claimed[id]++
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Len(t, claimed, 30)
		for id, n := range claimed {
			assert.Equal(t, 1, n, "id %s claimed more than once", id)
		}
		return nil
	})
	require.NoError(t, err)
}
