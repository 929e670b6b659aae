// Package redisstore implements shared state on Redis so that several scanner
// processes can enforce one cooldown per symbol.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"signal-lab/internal/observability"
	"signal-lab/internal/storage"
)

// acquireScript records ARGV[1] under KEYS[1] unless the stored timestamp
// lies within ARGV[2] ms before it. Returns 1 when recorded, 0 otherwise.
var acquireScript = redis.NewScript(`
local prev = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
if prev and now - tonumber(prev) < tonumber(ARGV[2]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// Options configures a CooldownStore.
type Options struct {
	KeyPrefix string        // default "signal-lab"
	KeyTTL    time.Duration // expiry of cooldown keys, 0 keeps them
}

// CooldownStore implements storage.CooldownStore with an atomic Lua check-and-set.
type CooldownStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCooldownStore wraps an existing client. The caller owns the client.
func NewCooldownStore(client redis.UniversalClient, opts Options) *CooldownStore {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "signal-lab"
	}
	return &CooldownStore{client: client, prefix: prefix, ttl: opts.KeyTTL}
}

// Compile-time interface check.
var _ storage.CooldownStore = (*CooldownStore)(nil)

// TryAcquire records nowMs for symbol unless a prior decision lies within windowMs.
func (s *CooldownStore) TryAcquire(ctx context.Context, symbol string, nowMs, windowMs int64) (ok bool, err error) {
	defer func(start time.Time) { observe("cooldown_acquire", start, err) }(time.Now())

	if symbol == "" {
		return false, storage.ErrInvalidInput
	}
	res, err := acquireScript.Run(ctx, s.client, []string{s.key(symbol)}, nowMs, windowMs, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("acquire cooldown %s: %w", symbol, err)
	}
	return res == 1, nil
}

// Last returns the last recorded timestamp for symbol.
func (s *CooldownStore) Last(ctx context.Context, symbol string) (_ int64, _ bool, err error) {
	defer func(start time.Time) { observe("cooldown_last", start, err) }(time.Now())

	v, err := s.client.Get(ctx, s.key(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cooldown %s: %w", symbol, err)
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cooldown %s: %w", symbol, err)
	}
	return ts, true, nil
}

func (s *CooldownStore) key(symbol string) string {
	return s.prefix + ":cooldown:" + symbol
}

func observe(operation string, start time.Time, err error) {
	observability.RecordDBQuery("redis", operation, time.Since(start).Seconds(), err)
}
