package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultSweepLockKey = "sessiond:sweeper:lock"

var releaseSweepLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisSweepLock struct {
	client redis.UniversalClient
	key    string
}

func NewRedisSweepLock(client redis.UniversalClient, key string) *RedisSweepLock {
	if key == "" {
		key = defaultSweepLockKey
	}
	return &RedisSweepLock{client: client, key: key}
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		return releaseSweepLock.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}
