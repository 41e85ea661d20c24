package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format 导出格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 解析格式名，空串或未知值回退到 JSON
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Snapshot 画布的完整导出：节点与连线的逐字段副本，按插入顺序
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Export 生成当前画布快照
func (c *Canvas) Export() Snapshot {
	s := Snapshot{
		Nodes: make([]Node, 0, len(c.nodeOrder)),
		Edges: make([]Edge, 0, len(c.edgeOrder)),
	}
	for _, id := range c.nodeOrder {
		s.Nodes = append(s.Nodes, c.nodes[id].clone())
	}
	for _, id := range c.edgeOrder {
		s.Edges = append(s.Edges, *c.edges[id])
	}
	return s
}

// Encode 将快照编码为指定格式的文本
func (s Snapshot) Encode(f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encode yaml snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml snapshot: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encode json snapshot: %w", err)
		}
		return data, nil
	}
}

// ParseSnapshot 解析导出文本
func ParseSnapshot(data []byte, f Format) (Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return s, nil
}

// Restore 由快照重建画布。节点 ID 不可重复，连线两端必须存在。
// ids 用于之后继续拖放的新节点。
func Restore(s Snapshot, ids IDGenerator) (*Canvas, error) {
	c := New(ids)
	for i := range s.Nodes {
		n := s.Nodes[i].clone()
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node %d has empty id", ErrInvalidSnapshot, i)
		}
		if _, dup := c.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidSnapshot, n.ID)
		}
		if n.Label == "" {
			n.Label = n.Type.Label()
		}
		c.insertNode(&n)
	}
	for i := range s.Edges {
		e := s.Edges[i]
		if _, ok := c.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("%w: edge %q source %q missing", ErrInvalidSnapshot, e.ID, e.Source)
		}
		if _, ok := c.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("%w: edge %q target %q missing", ErrInvalidSnapshot, e.ID, e.Target)
		}
		if e.ID == "" {
			return nil, fmt.Errorf("%w: edge %d has empty id", ErrInvalidSnapshot, i)
		}
		if _, dup := c.edges[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate edge id %q", ErrInvalidSnapshot, e.ID)
		}
		if e.Style == "" {
			e.Style = EdgeStyleSmoothStep
		}
		c.edges[e.ID] = &e
		c.edgeOrder = append(c.edgeOrder, e.ID)
	}
	return c, nil
}
