// Package moderation persists banned accounts in redis so that bans survive
// a server restart.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mpapenbr/carclash-server/log"
)

const DefaultBanKey = "ccs:banned"

type (
	Option   func(*BanStore)
	BanStore struct {
		client redis.Cmdable
		key    string
		l      *log.Logger
	}
)

func WithKey(key string) Option {
	return func(b *BanStore) {
		b.key = key
	}
}

func WithLogger(l *log.Logger) Option {
	return func(b *BanStore) {
		b.l = l
	}
}

func NewBanStore(client redis.Cmdable, opts ...Option) *BanStore {
	ret := &BanStore{
		client: client,
		key:    DefaultBanKey,
		l:      log.Default().Named("moderation"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// NewRedisClient connects to addr and checks the connection with a ping
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (b *BanStore) Ban(ctx context.Context, account string) error {
	if err := b.client.SAdd(ctx, b.key, account).Err(); err != nil {
		return fmt.Errorf("ban %s: %w", account, err)
	}
	b.l.Debug("ban stored", log.String("account", account))
	return nil
}

func (b *BanStore) Unban(ctx context.Context, account string) error {
	if err := b.client.SRem(ctx, b.key, account).Err(); err != nil {
		return fmt.Errorf("unban %s: %w", account, err)
	}
	b.l.Debug("ban removed", log.String("account", account))
	return nil
}

func (b *BanStore) IsBanned(ctx context.Context, account string) (bool, error) {
	return b.client.SIsMember(ctx, b.key, account).Result()
}

// Banned returns all stored accounts
func (b *BanStore) Banned(ctx context.Context) ([]string, error) {
	ret, err := b.client.SMembers(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load bans: %w", err)
	}
	return ret, nil
}
