package ordernumber

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// maxExactCounter is the largest value Lua numbers hold exactly.
const maxExactCounter = 1<<53 - 1

// nextScript runs atomically inside Redis. A missing key, a key of the
// wrong type or a value that is not a non-negative integer counts as 0.
// ARGV[1] is the exhaustion limit.
var nextScript = redis.NewScript(`
local raw = redis.pcall('GET', KEYS[1])
if type(raw) == 'table' then
  raw = nil
end
local last = tonumber(raw)
if last == nil or last < 0 or last ~= math.floor(last) then
  last = 0
end
if last >= tonumber(ARGV[1]) then
  return redis.error_reply('order counter exhausted')
end
local n = last + 1
redis.call('SET', KEYS[1], string.format('%d', n))
return n
`)

// RedisStore keeps the counter under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store using key on client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Next(ctx context.Context) (int64, error) {
	if s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	n, err := nextScript.Run(ctx, s.client, []string{s.key}, maxExactCounter).Int64()
	if err != nil && strings.Contains(err.Error(), ErrCounterExhausted.Error()) {
		return 0, ErrCounterExhausted
	}
	return n, err
}
