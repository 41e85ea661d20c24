package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Alert 用户设置的价格提醒
type Alert struct {
	Token     string    `json:"token"`
	Target    string    `json:"target"` // 用户输入的原始价格文本
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertStore 按聊天保存价格提醒
type AlertStore interface {
	AddAlert(ctx context.Context, chatID int64, a Alert) error
	ListAlerts(ctx context.Context, chatID int64) ([]Alert, error)
	// ClearAlerts 返回删除的条数
	ClearAlerts(ctx context.Context, chatID int64) (int, error)
}

// Stats 健身奖励账户
type Stats struct {
	Balance    int `json:"balance"`
	Activities int `json:"activities"`
}

// Ledger $FIT 奖励账本
type Ledger interface {
	// Credit 记一次活动并加 amount，返回记账后的状态
	Credit(ctx context.Context, chatID int64, amount int) (Stats, error)
	Stats(ctx context.Context, chatID int64) (Stats, error)
}

// Deduper 防止 Telegram 重投的 update 重复执行
type Deduper interface {
	// Claim 首次见到 (bot, updateID) 返回 true
	Claim(ctx context.Context, bot string, updateID int64) (bool, error)
}

// MemoryAlertStore 进程内提醒存储
type MemoryAlertStore struct {
	mu     sync.Mutex
	alerts map[int64][]Alert
}

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{alerts: make(map[int64][]Alert)}
}

func (s *MemoryAlertStore) AddAlert(_ context.Context, chatID int64, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[chatID] = append(s.alerts[chatID], a)
	return nil
}

func (s *MemoryAlertStore) ListAlerts(_ context.Context, chatID int64) ([]Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts[chatID]...), nil
}

func (s *MemoryAlertStore) ClearAlerts(_ context.Context, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.alerts[chatID])
	delete(s.alerts, chatID)
	return n, nil
}

// MemoryLedger 进程内账本
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[int64]Stats
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[int64]Stats)}
}

func (l *MemoryLedger) Credit(_ context.Context, chatID int64, amount int) (Stats, error) {
	if amount < 0 {
		return Stats{}, fmt.Errorf("credit amount must not be negative: %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.accounts[chatID]
	st.Balance += amount
	st.Activities++
	l.accounts[chatID] = st
	return st, nil
}

func (l *MemoryLedger) Stats(_ context.Context, chatID int64) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[chatID], nil
}

// MemoryDeduper 带过期时间的进程内去重
type MemoryDeduper struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryDeduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Claim(_ context.Context, bot string, updateID int64) (bool, error) {
	key := fmt.Sprintf("%s:%d", bot, updateID)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	// 顺手清理过期项
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}
	d.seen[key] = now.Add(d.ttl)
	return true, nil
}
