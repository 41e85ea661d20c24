package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"companionforge/internal/domain/simulator"
	applog "companionforge/internal/platform/log"
)

// TranscriptStore 预览对话：meta 存 JSON 字符串，消息存 list，两者同 TTL
type TranscriptStore struct {
	client *redis.Client
	keys   keyspace
	ttl    time.Duration

	// watched 在 WATCH 检查之后、事务提交之前调用，测试用来制造冲突
	watched func(attempt int)
}

// appendMaxRetry WATCH 冲突时的最大尝试次数
const appendMaxRetry = 5

func NewTranscriptStore(client *redis.Client, prefix string, ttl time.Duration) *TranscriptStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TranscriptStore{client: client, keys: keyspace(prefix), ttl: ttl}
}

func (s *TranscriptStore) metaKey(id string) string { return s.keys.key("sim", id) }
func (s *TranscriptStore) msgKey(id string) string  { return s.keys.key("sim", id, "messages") }

func (s *TranscriptStore) Save(ctx context.Context, t *simulator.Transcript) error {
	meta := *t
	meta.Messages = nil
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	msgs, err := encodeMessages(t.Messages)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.metaKey(t.ID), data, s.ttl)
		pipe.Del(ctx, s.msgKey(t.ID))
		if len(msgs) > 0 {
			pipe.RPush(ctx, s.msgKey(t.ID), msgs...)
			pipe.Expire(ctx, s.msgKey(t.ID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Load(ctx context.Context, id string) (*simulator.Transcript, error) {
	raw, err := s.client.Get(ctx, s.metaKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET: %w", err)
	}
	var t simulator.Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}

	items, err := s.client.LRange(ctx, s.msgKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE: %w", err)
	}
	t.Messages = make([]simulator.Message, 0, len(items))
	for _, item := range items {
		var m simulator.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		t.Messages = append(t.Messages, m)
	}
	return &t, nil
}

// Append 追加消息并续期；对话不存在时返回 ErrTranscriptNotFound
func (s *TranscriptStore) Append(ctx context.Context, id string, msgs ...simulator.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	encoded, err := encodeMessages(msgs)
	if err != nil {
		return err
	}

	meta, list := s.metaKey(id), s.msgKey(id)
	for attempt := 1; attempt <= appendMaxRetry; attempt++ {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, meta).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return simulator.ErrTranscriptNotFound
			}
			if s.watched != nil {
				s.watched(attempt)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.RPush(ctx, list, encoded...)
				pipe.Expire(ctx, list, s.ttl)
				pipe.Expire(ctx, meta, s.ttl)
				return nil
			})
			return err
		}, meta)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		applog.Warn("[Simulator/Redis] Append conflict, retrying",
			"transcript_id", id,
			"attempt", attempt,
			"max_retry", appendMaxRetry,
		)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, simulator.ErrTranscriptNotFound):
		return err
	default:
		return fmt.Errorf("redis append transcript: %w", err)
	}
}

func encodeMessages(msgs []simulator.Message) ([]interface{}, error) {
	out := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal message: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}

var _ simulator.TranscriptStore = (*TranscriptStore)(nil)
