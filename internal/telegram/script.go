package telegram

import (
	"context"
	"sort"
	"sync"
)

// Script 一个 bot 的脚本化对话
type Script interface {
	Name() string
	// Trigger 按触发词（按钮 callback_data 或 /start）生成回复；未知触发词返回空
	Trigger(ctx context.Context, chatID int64, trigger string) ([]Reply, error)
	// OnMessage 处理普通消息（文本、图片）
	OnMessage(ctx context.Context, msg *Message) ([]Reply, error)
}

// TriggerStart 所有脚本共用的开始命令
const TriggerStart = "/start"

// ScriptRegistry 按名称登记脚本
type ScriptRegistry struct {
	mu      sync.RWMutex
	scripts map[string]Script
}

func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{scripts: make(map[string]Script)}
}

// Register 注册脚本，同名覆盖
func (r *ScriptRegistry) Register(s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[s.Name()] = s
}

// Get 获取脚本
func (r *ScriptRegistry) Get(name string) (Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scripts[name]
	return s, ok
}

// Names 已注册脚本名（排序）
func (r *ScriptRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scripts))
	for name := range r.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
