package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/config"
)

func TestNewRedisConnects(t *testing.T) {
	s := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), config.RedisConfig{Addr: s.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(r.Close)

	assert.NoError(t, r.Ping(context.Background()))
}

func TestNewRedisFailsFast(t *testing.T) {
	// Nothing listens on port 1.
	addr := "127.0.0.1:1"

	r, err := NewRedis(context.Background(), config.RedisConfig{Addr: addr}, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), addr)
}

func TestPingWithoutClient(t *testing.T) {
	var r *Redis
	assert.Error(t, r.Ping(context.Background()))
}
