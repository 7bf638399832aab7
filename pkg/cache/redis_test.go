package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false, Host: "localhost", Port: 6379})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, "cache.internal:6380", Addr(config.RedisConfig{Host: "cache.internal", Port: 6380}))
}
