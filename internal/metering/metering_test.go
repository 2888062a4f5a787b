package metering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "restaurant-assistant/internal/common/errors"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

func newMiniredisMeter(t *testing.T, daily, monthly int) (*RedisMeter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisMeter(client, daily, monthly, fixedNow), mr
}

func TestAllow_DailyLimit(t *testing.T) {
	meter, mr := newMiniredisMeter(t, 2, 100)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := meter.Allow(ctx, "u1", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := meter.Allow(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonDailyLimit, d.Reason)
	assert.Equal(t, int64(3), d.Daily)

	// A different ip has its own counters.
	d, err = meter.Allow(ctx, "u1", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	ttl := mr.TTL(dayKey("u1", "10.0.0.1", fixedNow()))
	assert.Equal(t, 48*time.Hour, ttl)
}

func TestAllow_MonthlyLimit(t *testing.T) {
	meter, _ := newMiniredisMeter(t, 0, 1)
	ctx := context.Background()

	d, err := meter.Allow(ctx, "u1", "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = meter.Allow(ctx, "u1", "ip")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMonthlyLimit, d.Reason)
}

func TestBlockAndExpiry(t *testing.T) {
	meter, mr := newMiniredisMeter(t, 100, 100)
	ctx := context.Background()

	require.NoError(t, meter.Block(ctx, "u1", "ip", time.Minute))

	d, err := meter.Allow(ctx, "u1", "ip")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonBlocked, d.Reason)

	mr.FastForward(2 * time.Minute)

	d, err = meter.Allow(ctx, "u1", "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestUnblock(t *testing.T) {
	meter, _ := newMiniredisMeter(t, 100, 100)
	ctx := context.Background()

	require.NoError(t, meter.Block(ctx, "u1", "ip", time.Hour))
	require.NoError(t, meter.Unblock(ctx, "u1", "ip"))

	d, err := meter.Allow(ctx, "u1", "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAllow_RedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	meter := NewRedisMeter(client, 10, 10, fixedNow)

	mock.ExpectExists(blockKey("u1", "ip")).SetErr(errors.New("connection refused"))

	_, err := meter.Allow(context.Background(), "u1", "ip")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllowAll(t *testing.T) {
	d, err := AllowAll{}.Allow(context.Background(), "u", "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Allowed: false, Reason: ReasonDailyLimit}.Err()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUsageLimitExceeded, apperrors.CodeOf(err))
	assert.Equal(t, ReasonDailyLimit, apperrors.AsStandard(err).Details)
}
