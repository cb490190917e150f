package repository

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis points at a port nobody listens on.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCachedRepository_FallsThroughWhenRedisDown(t *testing.T) {
	backing := NewMemoryMeasurementRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cached := NewCachedMeasurementRepository(backing, unreachableRedis(t), time.Minute, logger)

	saved := seed(t, cached, "ankle", "dorsiflexion", time.Now())

	got, err := cached.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "ankle", got.Joint)

	_, err = cached.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMeasurementNotFound)

	list, total, err := cached.List(context.Background(), MeasurementFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestMeasurementKey(t *testing.T) {
	assert.Equal(t, "measurement:abc", measurementKey("abc"))
}
