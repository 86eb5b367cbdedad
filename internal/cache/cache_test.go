package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedProfile struct {
	Username string `json:"username"`
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Options().DB)

	c, err = NewClient("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", c.Options().Addr)
	require.NotNil(t, c.Options().MaintNotificationsConfig)
	assert.Equal(t, maintnotifications.ModeDisabled, c.Options().MaintNotificationsConfig.Mode)

	_, err = NewClient("redis://localhost:6379/notadb")
	assert.Error(t, err)
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis(mr.Addr())
	require.NotNil(t, GetClient())

	mr.Close()
	InitRedis(mr.Addr())
	assert.Nil(t, GetClient())
}

func TestJSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	ctx := context.Background()

	key := ProfileKey("0xABC")
	assert.Equal(t, "profile:0xabc", key)

	var got cachedProfile
	hit, err := GetJSON(ctx, rdb, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, SetJSON(ctx, rdb, key, cachedProfile{Username: "alice"}, time.Minute))
	hit, err = GetJSON(ctx, rdb, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "alice", got.Username)

	mr.FastForward(2 * time.Minute)
	hit, err = GetJSON(ctx, rdb, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, SetJSON(ctx, rdb, key, cachedProfile{Username: "bob"}, time.Minute))
	Invalidate(ctx, rdb, key)
	assert.False(t, mr.Exists(key))
}

func TestNilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	var got cachedProfile

	hit, err := GetJSON(ctx, nil, "k", &got)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, SetJSON(ctx, nil, "k", got, time.Minute))
	Invalidate(ctx, nil, "k")
}
