package canvas

import (
	"fmt"
	"strconv"
	"strings"
)

// 自动串联时新节点相对上一个节点的固定偏移
const (
	ChainOffsetX = 350
	ChainOffsetY = 50
)

// Canvas 一次编辑会话的节点/连线图。
// 节点与连线分别按 ID 存放，另有插入顺序索引；连线只保存节点 ID。
// Canvas 本身不加锁，由持有者保证串行调用。
type Canvas struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string

	ids     IDGenerator
	schemas *SchemaRegistry
}

// New 创建空画布；ids 为 nil 时使用时钟生成器
func New(ids IDGenerator) *Canvas {
	if ids == nil {
		ids = NewClockIDGenerator()
	}
	return &Canvas{
		nodes:   make(map[string]*Node),
		edges:   make(map[string]*Edge),
		ids:     ids,
		schemas: DefaultSchemas(),
	}
}

// SetSchemas 替换节点配置表单注册表
func (c *Canvas) SetSchemas(r *SchemaRegistry) {
	if r != nil {
		c.schemas = r
	}
}

// NodeCount 节点数量
func (c *Canvas) NodeCount() int { return len(c.nodeOrder) }

// EdgeCount 连线数量
func (c *Canvas) EdgeCount() int { return len(c.edgeOrder) }

// Node 按 ID 返回节点副本
func (c *Canvas) Node(id string) (Node, bool) {
	n, ok := c.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Last 最近创建的节点
func (c *Canvas) Last() (Node, bool) {
	if len(c.nodeOrder) == 0 {
		return Node{}, false
	}
	return c.Node(c.nodeOrder[len(c.nodeOrder)-1])
}

// DropResult 一次拖放的结果
type DropResult struct {
	Node Node  `json:"node"`
	Edge *Edge `json:"edge,omitempty"` // 自动串联产生的连线
}

// Drop 处理调色板拖放。
// 空类型直接忽略（ok=false）。第一个节点落在投影后的拖放点；
// 之后的节点与上一个节点自动连线，位置固定为上一个节点 + (350, 50)。
func (c *Canvas) Drop(typeTag string, at Point, proj Projector) (DropResult, bool) {
	typeTag = strings.TrimSpace(typeTag)
	if typeTag == "" {
		return DropResult{}, false
	}
	if proj == nil {
		proj = IdentityProjector
	}

	t := NodeType(typeTag)
	n := &Node{
		ID:       c.allocNodeID(t),
		Type:     t,
		Label:    t.Label(),
		Position: proj.Project(at),
		Config:   make(map[string]string),
	}

	var chained *Edge
	if len(c.nodeOrder) > 0 {
		prev := c.nodes[c.nodeOrder[len(c.nodeOrder)-1]]
		n.Position = prev.Position.Offset(ChainOffsetX, ChainOffsetY)
		c.insertNode(n)
		chained = c.insertEdge(prev.ID, n.ID)
	} else {
		c.insertNode(n)
	}

	res := DropResult{Node: n.clone()}
	if chained != nil {
		e := *chained
		res.Edge = &e
	}
	return res, true
}

// Connect 手动连线。两端必须存在；同一对节点可重复连线，允许成环。
func (c *Canvas) Connect(source, target string) (Edge, error) {
	if _, ok := c.nodes[source]; !ok {
		return Edge{}, fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	if _, ok := c.nodes[target]; !ok {
		return Edge{}, fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}
	return *c.insertEdge(source, target), nil
}

// UpdateNodeConfig 修改单个节点的单个配置字段，按节点类型表单校验
func (c *Canvas) UpdateNodeConfig(nodeID, field, value string) (Node, error) {
	n, ok := c.nodes[nodeID]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	f, ok := c.schemas.Lookup(n.Type).Field(field)
	if !ok {
		return Node{}, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, n.Type, field)
	}
	if err := f.Validate(value); err != nil {
		return Node{}, err
	}
	if value == "" {
		delete(n.Config, field)
	} else {
		n.Config[field] = value
	}
	return n.clone(), nil
}

// Schema 节点所属类型的配置表单
func (c *Canvas) Schema(nodeID string) (Schema, error) {
	n, ok := c.nodes[nodeID]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	return c.schemas.Lookup(n.Type), nil
}

func (c *Canvas) allocNodeID(t NodeType) string {
	id := c.ids.NodeID(t)
	for i := 2; ; i++ {
		if _, taken := c.nodes[id]; !taken {
			return id
		}
		id = c.ids.NodeID(t)
		if i > 16 {
			// 生成器持续冲突时退化为带序号后缀
			id = id + "-" + strconv.Itoa(len(c.nodeOrder)+i)
		}
	}
}

func (c *Canvas) insertNode(n *Node) {
	c.nodes[n.ID] = n
	c.nodeOrder = append(c.nodeOrder, n.ID)
}

func (c *Canvas) insertEdge(source, target string) *Edge {
	base := edgeBaseID(source, target)
	id := base
	for i := 2; ; i++ {
		if _, taken := c.edges[id]; !taken {
			break
		}
		id = base + "-" + strconv.Itoa(i)
	}
	e := &Edge{
		ID:       id,
		Source:   source,
		Target:   target,
		Style:    EdgeStyleSmoothStep,
		Animated: true,
	}
	c.edges[id] = e
	c.edgeOrder = append(c.edgeOrder, id)
	return e
}
