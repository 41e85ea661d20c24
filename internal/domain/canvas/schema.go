package canvas

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// FieldKind 配置字段的输入控件类型
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindTextarea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
	FieldKindURL      FieldKind = "url"
	FieldKindJSON     FieldKind = "json"
)

// FieldOption 下拉选项
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field 配置字段描述
type Field struct {
	Name        string        `json:"name"`
	Kind        FieldKind     `json:"kind"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
}

// Validate 校验字段值。空值总是合法（表示清空）。
func (f Field) Validate(value string) error {
	if value == "" {
		return nil
	}
	switch f.Kind {
	case FieldKindSelect:
		for _, o := range f.Options {
			if o.Value == value {
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not an option of %s", ErrInvalidFieldValue, value, f.Name)
	case FieldKindJSON:
		if !gjson.Valid(value) {
			return fmt.Errorf("%w: %s must be valid JSON", ErrInvalidFieldValue, f.Name)
		}
	case FieldKindURL:
		u, err := url.ParseRequestURI(value)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL", ErrInvalidFieldValue, f.Name)
		}
	}
	return nil
}

// Schema 某一节点类型的配置表单
type Schema struct {
	Type   NodeType `json:"type"`
	Fields []Field  `json:"fields"`
}

// Field 按名称查找字段
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SchemaRegistry 节点类型 -> 配置表单描述
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[NodeType]Schema
}

var defaultSchemas = &SchemaRegistry{schemas: builtinSchemas()}

// DefaultSchemas 返回内置表单注册表
func DefaultSchemas() *SchemaRegistry {
	return defaultSchemas
}

// NewSchemaRegistry 创建只含内置表单的独立注册表
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: builtinSchemas()}
}

// Register 注册或覆盖某类型的表单
func (r *SchemaRegistry) Register(s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Type] = s
}

// Lookup 查找类型表单；未注册的类型返回单个 default 文本字段
func (r *SchemaRegistry) Lookup(t NodeType) Schema {
	r.mu.RLock()
	s, ok := r.schemas[t]
	r.mu.RUnlock()
	if ok {
		return s
	}
	return Schema{
		Type: t,
		Fields: []Field{{
			Name:        "default",
			Kind:        FieldKindText,
			Placeholder: fmt.Sprintf("Enter %s details", strings.ToLower(t.Label())),
		}},
	}
}

func builtinSchemas() map[NodeType]Schema {
	return map[NodeType]Schema{
		NodeTypeLLM: {
			Type: NodeTypeLLM,
			Fields: []Field{{
				Name:        "model",
				Kind:        FieldKindSelect,
				Placeholder: "Select LLM",
				Options: []FieldOption{
					{Value: "openai", Label: "OpenAI"},
					{Value: "claude", Label: "Claude"},
					{Value: "gemini", Label: "Gemini"},
				},
			}},
		},
		NodeTypeAPI: {
			Type: NodeTypeAPI,
			Fields: []Field{
				{Name: "endpoint", Kind: FieldKindURL, Placeholder: "API Endpoint"},
				{Name: "params", Kind: FieldKindJSON, Placeholder: "Parameters (JSON)"},
			},
		},
		NodeTypeMemory: {
			Type: NodeTypeMemory,
			Fields: []Field{{
				Name:        "type",
				Kind:        FieldKindSelect,
				Placeholder: "Select Memory Type",
				Options: []FieldOption{
					{Value: "short-term", Label: "Short-term"},
					{Value: "long-term", Label: "Long-term"},
					{Value: "episodic", Label: "Episodic"},
				},
			}},
		},
		NodeTypePrompt: {
			Type: NodeTypePrompt,
			Fields: []Field{{
				Name:        "content",
				Kind:        FieldKindTextarea,
				Placeholder: "Enter prompt template",
			}},
		},
	}
}
