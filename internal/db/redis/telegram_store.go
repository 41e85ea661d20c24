package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	applog "companionforge/internal/platform/log"
	"companionforge/internal/telegram"
)

// AlertStore 价格提醒，每个聊天一个 list
type AlertStore struct {
	client *redis.Client
	keys   keyspace
}

func NewAlertStore(client *redis.Client, prefix string) *AlertStore {
	return &AlertStore{client: client, keys: keyspace(prefix)}
}

func (s *AlertStore) key(chatID int64) string {
	return s.keys.key("tg", "alerts", strconv.FormatInt(chatID, 10))
}

func (s *AlertStore) AddAlert(ctx context.Context, chatID int64, a telegram.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(chatID), data).Err(); err != nil {
		return fmt.Errorf("redis RPUSH: %w", err)
	}
	return nil
}

func (s *AlertStore) ListAlerts(ctx context.Context, chatID int64) ([]telegram.Alert, error) {
	raw, err := s.client.LRange(ctx, s.key(chatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE: %w", err)
	}
	alerts := make([]telegram.Alert, 0, len(raw))
	for _, item := range raw {
		var a telegram.Alert
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			applog.Warn("[Telegram/Redis] Skipping malformed alert", "chat_id", chatID, "error", err)
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func (s *AlertStore) ClearAlerts(ctx context.Context, chatID int64) (int, error) {
	key := s.key(chatID)
	var n *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		n = pipe.LLen(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis clear alerts: %w", err)
	}
	return int(n.Val()), nil
}

// RewardLedger $FIT 账本，每个聊天一个 hash（balance, activities）
type RewardLedger struct {
	client *redis.Client
	keys   keyspace
}

func NewRewardLedger(client *redis.Client, prefix string) *RewardLedger {
	return &RewardLedger{client: client, keys: keyspace(prefix)}
}

func (l *RewardLedger) key(chatID int64) string {
	return l.keys.key("tg", "fit", strconv.FormatInt(chatID, 10))
}

func (l *RewardLedger) Credit(ctx context.Context, chatID int64, amount int) (telegram.Stats, error) {
	if amount < 0 {
		return telegram.Stats{}, fmt.Errorf("credit amount must not be negative: %d", amount)
	}
	key := l.key(chatID)
	var balance, activities *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		balance = pipe.HIncrBy(ctx, key, "balance", int64(amount))
		activities = pipe.HIncrBy(ctx, key, "activities", 1)
		return nil
	})
	if err != nil {
		return telegram.Stats{}, fmt.Errorf("redis credit: %w", err)
	}
	applog.Info("[Telegram/Redis] Reward credited", "chat_id", chatID, "amount", amount, "balance", balance.Val())
	return telegram.Stats{Balance: int(balance.Val()), Activities: int(activities.Val())}, nil
}

func (l *RewardLedger) Stats(ctx context.Context, chatID int64) (telegram.Stats, error) {
	vals, err := l.client.HGetAll(ctx, l.key(chatID)).Result()
	if err != nil {
		return telegram.Stats{}, fmt.Errorf("redis HGETALL: %w", err)
	}
	var st telegram.Stats
	if v, ok := vals["balance"]; ok {
		st.Balance, _ = strconv.Atoi(v)
	}
	if v, ok := vals["activities"]; ok {
		st.Activities, _ = strconv.Atoi(v)
	}
	return st, nil
}

// UpdateDeduper 基于 SETNX 的 update 去重
type UpdateDeduper struct {
	client *redis.Client
	keys   keyspace
	ttl    time.Duration
}

func NewUpdateDeduper(client *redis.Client, prefix string, ttl time.Duration) *UpdateDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UpdateDeduper{client: client, keys: keyspace(prefix), ttl: ttl}
}

func (d *UpdateDeduper) Claim(ctx context.Context, bot string, updateID int64) (bool, error) {
	key := d.keys.key("tg", "update", bot, strconv.FormatInt(updateID, 10))
	acquired, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX: %w", err)
	}
	return acquired, nil
}

var (
	_ telegram.AlertStore = (*AlertStore)(nil)
	_ telegram.Ledger     = (*RewardLedger)(nil)
	_ telegram.Deduper    = (*UpdateDeduper)(nil)
)
