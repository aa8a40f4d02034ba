package testing

import (
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniRedis starts an in-process Redis server and a client bound to it.
// The returned func closes both.
func NewMiniRedis() (*miniredis.Miniredis, *redis.Client, func(), error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return mr, client, func() {
		client.Close()
		mr.Close()
	}, nil
}
