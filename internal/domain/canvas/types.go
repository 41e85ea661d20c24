package canvas

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NodeType 画布节点类型标签（来自调色板的拖拽负载）
type NodeType string

const (
	NodeTypeLLM       NodeType = "llm"
	NodeTypeMemory    NodeType = "memory"
	NodeTypeAPI       NodeType = "api"
	NodeTypeAgent     NodeType = "agent"
	NodeTypePrompt    NodeType = "prompt"
	NodeTypeFunction  NodeType = "function"
	NodeTypeTool      NodeType = "tool"
	NodeTypeOutput    NodeType = "output"
	NodeTypeRetrieval NodeType = "retrieval"
	NodeTypeAuth      NodeType = "auth"
)

// KnownNodeTypes 固定的类型集合，顺序与调色板一致
var KnownNodeTypes = []NodeType{
	NodeTypeLLM,
	NodeTypeMemory,
	NodeTypeAPI,
	NodeTypeAgent,
	NodeTypePrompt,
	NodeTypeFunction,
	NodeTypeTool,
	NodeTypeOutput,
	NodeTypeRetrieval,
	NodeTypeAuth,
}

// IsKnown 判断是否属于固定类型集合。未知类型仍可创建节点，只影响图标与表单。
func (t NodeType) IsKnown() bool {
	for _, k := range KnownNodeTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Label 节点标题：类型标签首字母大写（llm -> Llm）
func (t NodeType) Label() string {
	return capitalize(string(t))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Position 画布坐标
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Offset 返回平移后的坐标
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Point 屏幕像素坐标（拖拽事件的 clientX/clientY）
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// EdgeStyle 连线的视觉样式，仅为外观常量
type EdgeStyle string

const EdgeStyleSmoothStep EdgeStyle = "smoothstep"

// Node 画布节点。ID 与 Type 创建后不可变，Config 可随时修改。
type Node struct {
	ID       string            `json:"id" yaml:"id"`
	Type     NodeType          `json:"type" yaml:"type"`
	Label    string            `json:"label" yaml:"label"`
	Position Position          `json:"position" yaml:"position"`
	Config   map[string]string `json:"config" yaml:"config"`
}

func (n *Node) clone() Node {
	c := *n
	c.Config = make(map[string]string, len(n.Config))
	for k, v := range n.Config {
		c.Config[k] = v
	}
	return c
}

// Edge 有向连线，只引用节点 ID
type Edge struct {
	ID       string    `json:"id" yaml:"id"`
	Source   string    `json:"source" yaml:"source"`
	Target   string    `json:"target" yaml:"target"`
	Style    EdgeStyle `json:"type" yaml:"type"`
	Animated bool      `json:"animated" yaml:"animated"`
}

// edgeBaseID 由源、目标节点 ID 派生连线 ID
func edgeBaseID(source, target string) string {
	var b strings.Builder
	b.Grow(len(source) + len(target) + 2)
	b.WriteString("e")
	b.WriteString(source)
	b.WriteString("-")
	b.WriteString(target)
	return b.String()
}
