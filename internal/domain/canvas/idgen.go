package canvas

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator 节点 ID 生成器，由调用方注入
type IDGenerator interface {
	// NodeID 返回 "{type}-{suffix}" 形式的 ID
	NodeID(t NodeType) string
}

// ClockIDGenerator 以毫秒时间戳作为后缀：{type}-{epochMillis}。
// 同一毫秒内的多次调用后缀单调递增，保证在同一生成器内唯一。
type ClockIDGenerator struct {
	Now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewClockIDGenerator 创建基于系统时钟的生成器
func NewClockIDGenerator() *ClockIDGenerator {
	return &ClockIDGenerator{Now: time.Now}
}

func (g *ClockIDGenerator) NodeID(t NodeType) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ms := now().UnixMilli()

	g.mu.Lock()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	return string(t) + "-" + strconv.FormatInt(ms, 10)
}

// SequenceIDGenerator 确定性计数器：{type}-{n}，n 从 1 开始
type SequenceIDGenerator struct {
	mu sync.Mutex
	n  int64
}

func (g *SequenceIDGenerator) NodeID(t NodeType) string {
	g.mu.Lock()
	g.n++
	n := g.n
	g.mu.Unlock()
	return string(t) + "-" + strconv.FormatInt(n, 10)
}

// UUIDGenerator {type}-{uuid}
type UUIDGenerator struct{}

func (UUIDGenerator) NodeID(t NodeType) string {
	return string(t) + "-" + uuid.NewString()
}

// NewIDGenerator 按名称构造生成器：clock（默认）| sequence | uuid
func NewIDGenerator(kind string) IDGenerator {
	switch kind {
	case "sequence":
		return &SequenceIDGenerator{}
	case "uuid":
		return UUIDGenerator{}
	default:
		return NewClockIDGenerator()
	}
}
