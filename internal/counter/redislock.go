package counter

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	defaultRedisLockTTL = 10 * time.Second
	redisOpTimeout      = 2 * time.Second
)

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker takes the counter lock as a Redis key instead of a marker
// file. The key expires after TTL, which covers crashed holders.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	opts   LockOptions
}

// DialRedis connects and pings, failing fast when the server is unreachable.
func DialRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return client, nil
}

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration, opts LockOptions) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	return &RedisLocker{client: client, key: key, ttl: ttl, opts: opts.withDefaults()}
}

func (l *RedisLocker) Lock() (func(), error) {
	token := newOwnerToken()
	for attempt := 0; attempt < l.opts.Retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		cancel()
		if err != nil {
			return nil, errors.Wrap(err, "redis lock")
		}
		if ok {
			return func() { l.release(token) }, nil
		}
		if attempt < l.opts.Retries-1 {
			time.Sleep(l.opts.Interval)
		}
	}
	return nil, errors.Wrapf(ErrLockTimeout, "redis key %s after %s", l.key, l.opts.MaxWait())
}

func (l *RedisLocker) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
}
