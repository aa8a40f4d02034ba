package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/telecall/utils"
	"github.com/redis/go-redis/v9"
)

// Counter values are plain strings under "<prefix>:counter:<year>". The pool is
// one sorted set where every member has score 0, so ZPOPMIN returns the
// lexically smallest id.
var (
	ensureBaselineScript = redis.NewScript(`
		local current = tonumber(redis.call('GET', KEYS[1]) or '0')
		local baseline = tonumber(ARGV[1])
		if current < baseline then
			redis.call('SET', KEYS[1], baseline)
		end
		return 1
	`)

	incrementAndGetScript = redis.NewScript(`
		local current = tonumber(redis.call('GET', KEYS[1]) or '0')
		local baseline = tonumber(ARGV[1])
		if current < baseline then
			current = baseline
		end
		current = current + 1
		redis.call('SET', KEYS[1], current)
		return current
	`)
)

type redisAppointmentKeys struct {
	prefix string
}

func (k redisAppointmentKeys) counter(year int) string {
	return fmt.Sprintf("%s:counter:%d", k.prefix, year)
}

func (k redisAppointmentKeys) pool() string {
	return k.prefix + ":recycled"
}

// RedisYearCounterRepository implements YearCounterRepository on Redis
type RedisYearCounterRepository struct {
	client   *redis.Client
	keys     redisAppointmentKeys
	baseline int64
}

func NewRedisYearCounterRepository(client *redis.Client, prefix string) *RedisYearCounterRepository {
	if prefix == "" {
		prefix = utils.AppointmentRedisKeyPrefix
	}
	return &RedisYearCounterRepository{
		client:   client,
		keys:     redisAppointmentKeys{prefix: prefix},
		baseline: utils.AppointmentSeqBaseline,
	}
}

func (r *RedisYearCounterRepository) EnsureBaseline(ctx context.Context, year int) error {
	if err := ensureBaselineScript.Run(ctx, r.client, []string{r.keys.counter(year)}, r.baseline).Err(); err != nil {
		return fmt.Errorf("failed to ensure counter baseline for %d: %w", year, err)
	}
	return nil
}

func (r *RedisYearCounterRepository) IncrementAndGet(ctx context.Context, year int) (int64, error) {
	seq, err := incrementAndGetScript.Run(ctx, r.client, []string{r.keys.counter(year)}, r.baseline).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter for %d: %w", year, err)
	}
	return seq, nil
}

func (r *RedisYearCounterRepository) Current(ctx context.Context, year int) (int64, bool, error) {
	seq, err := r.client.Get(ctx, r.keys.counter(year)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read counter for %d: %w", year, err)
	}
	return seq, true, nil
}

func (r *RedisYearCounterRepository) Reset(ctx context.Context, year int) error {
	if err := r.client.Set(ctx, r.keys.counter(year), r.baseline, 0).Err(); err != nil {
		return fmt.Errorf("failed to reset counter for %d: %w", year, err)
	}
	return nil
}

// RedisRecycledAppointmentIDRepository implements RecycledAppointmentIDRepository on a Redis sorted set
type RedisRecycledAppointmentIDRepository struct {
	client *redis.Client
	keys   redisAppointmentKeys
}

func NewRedisRecycledAppointmentIDRepository(client *redis.Client, prefix string) *RedisRecycledAppointmentIDRepository {
	if prefix == "" {
		prefix = utils.AppointmentRedisKeyPrefix
	}
	return &RedisRecycledAppointmentIDRepository{
		client: client,
		keys:   redisAppointmentKeys{prefix: prefix},
	}
}

// Reclaim ignores year: the id already carries its year prefix
func (r *RedisRecycledAppointmentIDRepository) Reclaim(ctx context.Context, appointmentID string, _ int) (bool, error) {
	added, err := r.client.ZAddNX(ctx, r.keys.pool(), redis.Z{Score: 0, Member: appointmentID}).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reclaim appointment id %s: %w", appointmentID, err)
	}
	return added == 1, nil
}

func (r *RedisRecycledAppointmentIDRepository) Claim(ctx context.Context) (string, bool, error) {
	popped, err := r.client.ZPopMin(ctx, r.keys.pool(), 1).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim recycled appointment id: %w", err)
	}
	if len(popped) == 0 {
		return "", false, nil
	}

	id, ok := popped[0].Member.(string)
	if !ok {
		return "", false, fmt.Errorf("failed to claim recycled appointment id: unexpected member %v", popped[0].Member)
	}
	return id, true, nil
}

func (r *RedisRecycledAppointmentIDRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.client.ZCard(ctx, r.keys.pool()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count recycled appointment ids: %w", err)
	}
	return count, nil
}

func (r *RedisRecycledAppointmentIDRepository) List(ctx context.Context, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRange(ctx, r.keys.pool(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recycled appointment ids: %w", err)
	}
	return ids, nil
}

func (r *RedisRecycledAppointmentIDRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.keys.pool()).Err(); err != nil {
		return fmt.Errorf("failed to clear recycled appointment ids: %w", err)
	}
	return nil
}

// RedisAppointmentAllocatorResetter resets counter and pool in one MULTI/EXEC
type RedisAppointmentAllocatorResetter struct {
	client   *redis.Client
	keys     redisAppointmentKeys
	baseline int64
}

func NewRedisAppointmentAllocatorResetter(client *redis.Client, prefix string) *RedisAppointmentAllocatorResetter {
	if prefix == "" {
		prefix = utils.AppointmentRedisKeyPrefix
	}
	return &RedisAppointmentAllocatorResetter{
		client:   client,
		keys:     redisAppointmentKeys{prefix: prefix},
		baseline: utils.AppointmentSeqBaseline,
	}
}

func (r *RedisAppointmentAllocatorResetter) ResetAllocator(ctx context.Context, year int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.counter(year), r.baseline, 0)
		pipe.Del(ctx, r.keys.pool())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset appointment allocator for %d: %w", year, err)
	}
	return nil
}
