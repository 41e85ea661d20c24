package api

import "context"

// Caller 已鉴权的调用方；Subject 即伴侣的 owner_id
type Caller struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles,omitempty"`
}

// Owns 调用方是否为该伴侣的所有者
func (c *Caller) Owns(ownerID string) bool {
	return c != nil && ownerID != "" && c.Subject == ownerID
}

type callerKey struct{}

func withCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom 取出调用方；未经过鉴权中间件时返回 nil
func CallerFrom(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey{}).(*Caller)
	return c
}
