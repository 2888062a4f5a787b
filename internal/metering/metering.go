// Package metering gates the assistant entry points with per-(user, ip) day and month counters.
package metering

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "restaurant-assistant/internal/common/errors"
)

const keyPrefix = "assistant:usage"

// DefaultBlockTTL applies when a block is requested without a duration.
const DefaultBlockTTL = 24 * time.Hour

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Daily   int64  `json:"daily"`
	Monthly int64  `json:"monthly"`
}

// Err is nil for an allowed call and a USAGE_LIMIT_EXCEEDED error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.NewUsageLimitExceededError(d.Reason)
}

const (
	ReasonBlocked      = "blocked"
	ReasonDailyLimit   = "daily_limit"
	ReasonMonthlyLimit = "monthly_limit"
)

// Meter decides whether one more call may run.
type Meter interface {
	Allow(ctx context.Context, userID, ip string) (Decision, error)
}

// AllowAll is used when metering is disabled.
type AllowAll struct{}

func (AllowAll) Allow(ctx context.Context, userID, ip string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// RedisMeter counts calls with INCR and lets keys lapse with EXPIRE, so no process holds the counters.
type RedisMeter struct {
	client       redis.Cmdable
	dailyLimit   int64
	monthlyLimit int64
	now          func() time.Time
}

func NewRedisMeter(client redis.Cmdable, dailyLimit, monthlyLimit int, now func() time.Time) *RedisMeter {
	if now == nil {
		now = time.Now
	}
	return &RedisMeter{
		client:       client,
		dailyLimit:   int64(dailyLimit),
		monthlyLimit: int64(monthlyLimit),
		now:          now,
	}
}

func blockKey(userID, ip string) string {
	return fmt.Sprintf("%s:block:%s:%s", keyPrefix, userID, ip)
}

func dayKey(userID, ip string, t time.Time) string {
	return fmt.Sprintf("%s:day:%s:%s:%s", keyPrefix, userID, ip, t.Format("2006-01-02"))
}

func monthKey(userID, ip string, t time.Time) string {
	return fmt.Sprintf("%s:month:%s:%s:%s", keyPrefix, userID, ip, t.Format("2006-01"))
}

// Allow increments both counters and denies once either exceeds its limit.
// A limit of zero disables that window.
func (m *RedisMeter) Allow(ctx context.Context, userID, ip string) (Decision, error) {
	blocked, err := m.client.Exists(ctx, blockKey(userID, ip)).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("check blocklist: %w", err)
	}
	if blocked > 0 {
		return Decision{Allowed: false, Reason: ReasonBlocked}, nil
	}

	now := m.now().UTC()
	var daily, monthly *redis.IntCmd
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		daily = pipe.Incr(ctx, dayKey(userID, ip, now))
		pipe.Expire(ctx, dayKey(userID, ip, now), 48*time.Hour)
		monthly = pipe.Incr(ctx, monthKey(userID, ip, now))
		pipe.Expire(ctx, monthKey(userID, ip, now), 32*24*time.Hour)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("increment usage: %w", err)
	}

	decision := Decision{Allowed: true, Daily: daily.Val(), Monthly: monthly.Val()}
	switch {
	case m.dailyLimit > 0 && decision.Daily > m.dailyLimit:
		decision.Allowed = false
		decision.Reason = ReasonDailyLimit
	case m.monthlyLimit > 0 && decision.Monthly > m.monthlyLimit:
		decision.Allowed = false
		decision.Reason = ReasonMonthlyLimit
	}
	return decision, nil
}

// Block denies every call from (user, ip) for ttl.
func (m *RedisMeter) Block(ctx context.Context, userID, ip string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultBlockTTL
	}
	if err := m.client.Set(ctx, blockKey(userID, ip), "1", ttl).Err(); err != nil {
		return fmt.Errorf("block %s: %w", userID, err)
	}
	return nil
}

func (m *RedisMeter) Unblock(ctx context.Context, userID, ip string) error {
	return m.client.Del(ctx, blockKey(userID, ip)).Err()
}
