package studio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"companionforge/internal/domain/canvas"
	applog "companionforge/internal/platform/log"
	"companionforge/internal/platform/metrics"
)

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("studio: canvas session not found")
	// ErrTooManySessions 达到会话上限
	ErrTooManySessions = errors.New("studio: too many canvas sessions")
)

// Options SessionManager 配置
type Options struct {
	IDGenerator string        // clock | sequence | uuid，每个会话独立实例
	TTL         time.Duration // 空闲多久后回收，0 表示不回收
	MaxSessions int           // 0 表示不限
	Schemas     *canvas.SchemaRegistry
	Metrics     *metrics.Collector
	Now         func() time.Time
}

// SessionInfo 会话摘要
type SessionInfo struct {
	ID        string    `json:"id"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type session struct {
	id        string
	mu        sync.Mutex
	canvas    *canvas.Canvas
	createdAt time.Time
	touchedAt time.Time
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:        s.id,
		Nodes:     s.canvas.NodeCount(),
		Edges:     s.canvas.EdgeCount(),
		CreatedAt: s.createdAt,
		UpdatedAt: s.touchedAt,
	}
}

// SessionManager 托管多个画布编辑会话。
// 每个会话一把互斥锁：同一画布上的拖放、连线、配置和导出依次执行，不同会话互不阻塞。
type SessionManager struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionManager 创建会话管理器
func NewSessionManager(opts Options) *SessionManager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Schemas == nil {
		opts.Schemas = canvas.DefaultSchemas()
	}
	return &SessionManager{
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Create 新建空画布会话
func (m *SessionManager) Create() (SessionInfo, error) {
	return m.add(canvas.New(canvas.NewIDGenerator(m.opts.IDGenerator)))
}

// Import 由导出数据新建会话
func (m *SessionManager) Import(data []byte, f canvas.Format) (SessionInfo, error) {
	snap, err := canvas.ParseSnapshot(data, f)
	if err != nil {
		return SessionInfo{}, err
	}
	c, err := canvas.Restore(snap, canvas.NewIDGenerator(m.opts.IDGenerator))
	if err != nil {
		return SessionInfo{}, err
	}
	info, err := m.add(c)
	if err != nil {
		return SessionInfo{}, err
	}
	applog.Info("[Canvas] Session imported", "session_id", info.ID, "nodes", info.Nodes, "edges", info.Edges)
	return info, nil
}

func (m *SessionManager) add(c *canvas.Canvas) (SessionInfo, error) {
	c.SetSchemas(m.opts.Schemas)
	now := m.opts.Now()
	s := &session{
		id:        uuid.NewString(),
		canvas:    c,
		createdAt: now,
		touchedAt: now,
	}

	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return SessionInfo{}, ErrTooManySessions
	}
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.opts.Metrics.SetSessions(n)
	return s.info(), nil
}

// Delete 关闭会话
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.opts.Metrics.SetSessions(n)
	return nil
}

// Len 当前会话数
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Info 会话摘要
func (m *SessionManager) Info(id string) (SessionInfo, error) {
	var info SessionInfo
	err := m.with(id, false, func(s *session) error {
		info = s.info()
		return nil
	})
	return info, err
}

// View 在同一次加锁内取摘要与画布内容，两者保证一致
func (m *SessionManager) View(id string) (SessionInfo, canvas.Snapshot, error) {
	var (
		info SessionInfo
		snap canvas.Snapshot
	)
	err := m.with(id, false, func(s *session) error {
		info = s.info()
		snap = s.canvas.Export()
		return nil
	})
	return info, snap, err
}

// Snapshot 返回画布当前内容（不记录导出日志）
func (m *SessionManager) Snapshot(id string) (canvas.Snapshot, error) {
	var snap canvas.Snapshot
	err := m.with(id, false, func(s *session) error {
		snap = s.canvas.Export()
		return nil
	})
	return snap, err
}

// Drop 在会话画布上执行一次拖放；空类型返回 ok=false
func (m *SessionManager) Drop(id, typeTag string, at canvas.Point, proj canvas.Projector) (res canvas.DropResult, ok bool, err error) {
	err = m.with(id, true, func(s *session) error {
		res, ok = s.canvas.Drop(typeTag, at, proj)
		return nil
	})
	if err != nil {
		return canvas.DropResult{}, false, err
	}
	if !ok {
		m.opts.Metrics.DropIgnored()
		applog.Debug("[Canvas] Drop ignored: empty node type", "session_id", id)
		return res, false, nil
	}

	m.opts.Metrics.NodeDropped(string(res.Node.Type))
	if res.Edge != nil {
		m.opts.Metrics.EdgeCreated("auto")
	}
	applog.Debug("[Canvas] Node dropped",
		"session_id", id,
		"node_id", res.Node.ID,
		"type", res.Node.Type,
		"chained", res.Edge != nil,
	)
	return res, true, nil
}

// Connect 手动连线
func (m *SessionManager) Connect(id, source, target string) (canvas.Edge, error) {
	var e canvas.Edge
	err := m.with(id, true, func(s *session) error {
		var err error
		e, err = s.canvas.Connect(source, target)
		return err
	})
	if err != nil {
		return canvas.Edge{}, err
	}
	m.opts.Metrics.EdgeCreated("manual")
	applog.Debug("[Canvas] Edge connected", "session_id", id, "edge_id", e.ID)
	return e, nil
}

// UpdateConfig 修改节点配置字段
func (m *SessionManager) UpdateConfig(id, nodeID, field, value string) (canvas.Node, error) {
	var n canvas.Node
	err := m.with(id, true, func(s *session) error {
		var err error
		n, err = s.canvas.UpdateNodeConfig(nodeID, field, value)
		return err
	})
	return n, err
}

// NodeSchema 节点的配置表单
func (m *SessionManager) NodeSchema(id, nodeID string) (canvas.Schema, error) {
	var schema canvas.Schema
	err := m.with(id, false, func(s *session) error {
		var err error
		schema, err = s.canvas.Schema(nodeID)
		return err
	})
	return schema, err
}

// Export 导出画布并写入日志
func (m *SessionManager) Export(id string, f canvas.Format) ([]byte, error) {
	var snap canvas.Snapshot
	err := m.with(id, true, func(s *session) error {
		snap = s.canvas.Export()
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := snap.Encode(f)
	if err != nil {
		return nil, err
	}
	m.opts.Metrics.Exported(string(f))
	applog.Info("[Canvas] Workflow exported",
		"session_id", id,
		"format", f,
		"nodes", len(snap.Nodes),
		"edges", len(snap.Edges),
		"dump", string(data),
	)
	return data, nil
}

// with 在会话锁内执行 fn；touch 为 true 时刷新空闲计时
func (m *SessionManager) with(id string, touch bool, fn func(s *session) error) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if touch {
		s.touchedAt = m.opts.Now()
	}
	return fn(s)
}

// List 按创建时间列出会话
func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]SessionInfo, 0, len(all))
	for _, s := range all {
		s.mu.Lock()
		out = append(out, s.info())
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Evict 回收空闲超过 TTL 的会话，返回回收数量
func (m *SessionManager) Evict() int {
	if m.opts.TTL <= 0 {
		return 0
	}
	cutoff := m.opts.Now().Add(-m.opts.TTL)

	m.mu.Lock()
	evicted := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.touchedAt.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if evicted > 0 {
		m.opts.Metrics.SetSessions(n)
		applog.Info("[Canvas] Idle sessions evicted", "count", evicted, "remaining", n)
	}
	return evicted
}

// RunJanitor 周期性回收空闲会话，直到 ctx 取消
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.opts.TTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Evict()
		}
	}
}
