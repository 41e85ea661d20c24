package canvas

// PaletteItem 调色板中可拖拽的节点类型
type PaletteItem struct {
	Type  NodeType `json:"type"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
	Color string   `json:"color"`
}

var palette = []PaletteItem{
	{Type: NodeTypeLLM, Label: "Language Model", Icon: "brain", Color: "#3BF4FB"},
	{Type: NodeTypeMemory, Label: "Memory", Icon: "database", Color: "#E0AAFF"},
	{Type: NodeTypeAPI, Label: "API", Icon: "globe", Color: "#FF6B6B"},
	{Type: NodeTypeAgent, Label: "Agent", Icon: "robot", Color: "#4ECB71"},
	{Type: NodeTypePrompt, Label: "Prompt", Icon: "comments", Color: "#FCA311"},
	{Type: NodeTypeFunction, Label: "Function", Icon: "code", Color: "#9D4EDD"},
	{Type: NodeTypeTool, Label: "Tool", Icon: "cog", Color: "#00B4D8"},
	{Type: NodeTypeOutput, Label: "Output", Icon: "chart-bar", Color: "#FF9F1C"},
	{Type: NodeTypeRetrieval, Label: "Retrieval", Icon: "search", Color: "#FF5733"},
	{Type: NodeTypeAuth, Label: "Authentication", Icon: "lock", Color: "#4CAF50"},
}

// DefaultIcon 未知类型使用的图标
const DefaultIcon = "cog"

// Palette 返回调色板副本
func Palette() []PaletteItem {
	out := make([]PaletteItem, len(palette))
	copy(out, palette)
	return out
}

// IconFor 类型对应图标，未知类型回退到 DefaultIcon
func IconFor(t NodeType) string {
	for _, item := range palette {
		if item.Type == t {
			return item.Icon
		}
	}
	return DefaultIcon
}
