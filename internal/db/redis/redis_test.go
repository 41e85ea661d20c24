package redisdb

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companionforge/internal/domain/simulator"
	"companionforge/internal/telegram"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Open(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = Open(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "cf:tg:alerts:1", keyspace("cf").key("tg", "alerts", "1"))
	assert.Equal(t, "sim:x", keyspace("").key("sim", "x"))
}

func TestAlertStore(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	s := NewAlertStore(client, "cf")

	alerts, err := s.ListAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, s.AddAlert(ctx, 1, telegram.Alert{Token: "BTC", Target: "50000", Price: 50000}))
	require.NoError(t, s.AddAlert(ctx, 1, telegram.Alert{Token: "ETH", Target: "2800", Price: 2800}))
	require.NoError(t, s.AddAlert(ctx, 2, telegram.Alert{Token: "SOL", Target: "95", Price: 95}))

	alerts, err = s.ListAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "BTC", alerts[0].Token)
	assert.Equal(t, "ETH", alerts[1].Token)

	n, err := s.ClearAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	alerts, _ = s.ListAlerts(ctx, 1)
	assert.Empty(t, alerts)

	alerts, _ = s.ListAlerts(ctx, 2)
	assert.Len(t, alerts, 1)
}

func TestRewardLedger(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	l := NewRewardLedger(client, "cf")

	st, err := l.Stats(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, telegram.Stats{}, st)

	st, err = l.Credit(ctx, 9, 10)
	require.NoError(t, err)
	assert.Equal(t, telegram.Stats{Balance: 10, Activities: 1}, st)
	_, err = l.Credit(ctx, 9, 10)
	require.NoError(t, err)

	st, err = l.Stats(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, telegram.Stats{Balance: 20, Activities: 2}, st)
	assert.Equal(t, "20", mr.HGet("cf:tg:fit:9", "balance"))

	_, err = l.Credit(ctx, 9, -1)
	assert.Error(t, err)
}

func TestUpdateDeduper(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	d := NewUpdateDeduper(client, "cf", time.Minute)

	first, err := d.Claim(ctx, "sage", 100)
	require.NoError(t, err)
	assert.True(t, first)
	first, err = d.Claim(ctx, "sage", 100)
	require.NoError(t, err)
	assert.False(t, first)
	first, _ = d.Claim(ctx, "fitness", 100)
	assert.True(t, first)

	assert.Equal(t, time.Minute, mr.TTL("cf:tg:update:sage:100"))
	mr.FastForward(time.Minute)
	first, _ = d.Claim(ctx, "sage", 100)
	assert.True(t, first)
}

func TestTranscriptStore(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	s := NewTranscriptStore(client, "cf", time.Hour)

	got, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = s.Append(ctx, "missing", simulator.Message{Role: simulator.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, simulator.ErrTranscriptNotFound)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := &simulator.Transcript{
		ID:        "t1",
		Persona:   simulator.Persona{Name: "Sage"},
		Messages:  []simulator.Message{{Role: simulator.RoleAI, Content: "hello", At: at}},
		CreatedAt: at,
	}
	require.NoError(t, s.Save(ctx, tr))
	require.NoError(t, s.Append(ctx, "t1",
		simulator.Message{Role: simulator.RoleUser, Content: "q", At: at},
		simulator.Message{Role: simulator.RoleAI, Content: "a", At: at},
	))

	got, err = s.Load(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sage", got.Persona.Name)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "q", got.Messages[1].Content)
	assert.True(t, at.Equal(got.Messages[2].At))

	assert.Equal(t, time.Hour, mr.TTL("cf:sim:t1"))
	assert.Equal(t, time.Hour, mr.TTL("cf:sim:t1:messages"))

	mr.FastForward(2 * time.Hour)
	got, err = s.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTranscriptAppendRetriesOnConflict(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	s := NewTranscriptStore(client, "cf", time.Hour)
	require.NoError(t, s.Save(ctx, &simulator.Transcript{ID: "t1"}))

	meta, err := client.Get(ctx, s.metaKey("t1")).Result()
	require.NoError(t, err)

	// 前两次在 WATCH 之后改写 meta，使事务失败
	var attempts []int
	s.watched = func(attempt int) {
		attempts = append(attempts, attempt)
		if attempt <= 2 {
			require.NoError(t, client.Set(ctx, s.metaKey("t1"), meta, time.Hour).Err())
		}
	}
	require.NoError(t, s.Append(ctx, "t1", simulator.Message{Role: simulator.RoleUser, Content: "q"}))
	assert.Equal(t, []int{1, 2, 3}, attempts)

	n, err := client.LLen(ctx, s.msgKey("t1")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTranscriptAppendGivesUpAfterRetries(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	s := NewTranscriptStore(client, "cf", time.Hour)
	require.NoError(t, s.Save(ctx, &simulator.Transcript{ID: "t1"}))
	meta, err := client.Get(ctx, s.metaKey("t1")).Result()
	require.NoError(t, err)

	s.watched = func(int) {
		require.NoError(t, client.Set(ctx, s.metaKey("t1"), meta, time.Hour).Err())
	}
	err = s.Append(ctx, "t1", simulator.Message{Role: simulator.RoleUser, Content: "q"})
	assert.ErrorIs(t, err, redis.TxFailedErr)
}

func TestTranscriptStoreWithService(t *testing.T) {
	_, client := newTestClient(t)
	svc := simulator.NewService(nil, NewTranscriptStore(client, "", 0))

	tr, err := svc.Start(context.Background(), simulator.Persona{Name: "Buddy"})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), tr.ID, "how are you?")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}
