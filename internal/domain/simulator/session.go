package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTranscriptNotFound 对话不存在或已过期
var ErrTranscriptNotFound = errors.New("simulator: transcript not found")

// Transcript 一次预览对话
type Transcript struct {
	ID        string    `json:"id"`
	Persona   Persona   `json:"persona"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptStore 对话记录存储。Load 在记录不存在时返回 (nil, nil)。
type TranscriptStore interface {
	Save(ctx context.Context, t *Transcript) error
	Load(ctx context.Context, id string) (*Transcript, error)
	Append(ctx context.Context, id string, msgs ...Message) error
}

// Exchange 一轮问答
type Exchange struct {
	Ignored bool     `json:"ignored"`
	User    *Message `json:"user,omitempty"`
	Reply   *Message `json:"reply,omitempty"`
	DelayMS int64    `json:"typing_delay_ms"`
}

// Service 预览对话服务
type Service struct {
	sim   *Simulator
	store TranscriptStore
	now   func() time.Time
}

// NewService 创建服务
func NewService(sim *Simulator, store TranscriptStore) *Service {
	if sim == nil {
		sim = New(nil)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Service{sim: sim, store: store, now: time.Now}
}

// Start 开始对话，首条消息为开场白
func (s *Service) Start(ctx context.Context, p Persona) (*Transcript, error) {
	t := &Transcript{
		ID:        uuid.NewString(),
		Persona:   p,
		CreatedAt: s.now(),
	}
	t.Messages = []Message{{Role: RoleAI, Content: Greeting(p), At: t.CreatedAt}}
	if err := s.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}
	return t, nil
}

// Send 发送用户消息并记录模拟回复
func (s *Service) Send(ctx context.Context, id, text string) (*Exchange, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	reply, ok := s.sim.Respond(t.Persona, text)
	if !ok {
		return &Exchange{Ignored: true}, nil
	}

	now := s.now()
	user := Message{Role: RoleUser, Content: text, At: now}
	ai := Message{Role: RoleAI, Content: reply.Content, At: now.Add(reply.Delay)}
	if err := s.store.Append(ctx, id, user, ai); err != nil {
		return nil, fmt.Errorf("append transcript: %w", err)
	}
	return &Exchange{User: &user, Reply: &ai, DelayMS: reply.Delay.Milliseconds()}, nil
}

// Get 读取对话
func (s *Service) Get(ctx context.Context, id string) (*Transcript, error) {
	t, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if t == nil {
		return nil, ErrTranscriptNotFound
	}
	return t, nil
}

// MemoryStore 进程内对话存储
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Transcript
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Transcript)}
}

func (m *MemoryStore) Save(_ context.Context, t *Transcript) error {
	cp := *t
	cp.Messages = append([]Message(nil), t.Messages...)
	m.mu.Lock()
	m.items[t.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Messages = append([]Message(nil), t.Messages...)
	return &cp, nil
}

func (m *MemoryStore) Append(_ context.Context, id string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return ErrTranscriptNotFound
	}
	t.Messages = append(t.Messages, msgs...)
	return nil
}
