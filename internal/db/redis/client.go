package redisdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	applog "companionforge/internal/platform/log"
)

// Open 解析 REDIS_URL 并探活
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	applog.Info("[Redis] Connected", "addr", opt.Addr, "db", opt.DB)
	return client, nil
}

// keyspace 统一的 key 前缀拼接
type keyspace string

func (k keyspace) key(parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if k != "" {
		all = append(all, string(k))
	}
	all = append(all, parts...)
	return strings.Join(all, ":")
}
