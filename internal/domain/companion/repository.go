package companion

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound 伴侣不存在（或不属于当前用户）
var ErrNotFound = errors.New("companion: not found")

// ListParams 列表查询参数
type ListParams struct {
	OwnerID  string
	Status   Status
	Search   string
	Page     int
	PageSize int
}

// Normalize 分页默认值：page 从 1 开始，pageSize 1..100，缺省 20
func (p *ListParams) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

// ListResult 列表查询结果
type ListResult struct {
	Companions []*Companion `json:"companions"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
}

// Repository 伴侣存储接口。Get 在记录不存在时返回 (nil, nil)。
type Repository interface {
	CreateCompanion(ctx context.Context, c *Companion) error
	GetCompanion(ctx context.Context, id string) (*Companion, error)
	UpdateCompanion(ctx context.Context, c *Companion) error
	DeleteCompanion(ctx context.Context, id string) error
	ListCompanions(ctx context.Context, params ListParams) (*ListResult, error)
}

// MemoryRepository 进程内实现，未配置数据库时使用
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Companion
	now   func() time.Time
}

// NewMemoryRepository 创建内存存储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]*Companion),
		now:   time.Now,
	}
}

func (r *MemoryRepository) CreateCompanion(_ context.Context, c *Companion) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[c.ID]; exists {
		return errors.New("companion: duplicate id " + c.ID)
	}
	r.items[c.ID] = clone(c)
	return nil
}

func (r *MemoryRepository) GetCompanion(_ context.Context, id string) (*Companion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return clone(c), nil
}

func (r *MemoryRepository) UpdateCompanion(_ context.Context, c *Companion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = r.now()
	c.Normalize()
	r.items[c.ID] = clone(c)
	return nil
}

func (r *MemoryRepository) DeleteCompanion(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) ListCompanions(_ context.Context, params ListParams) (*ListResult, error) {
	params.Normalize()
	search := strings.ToLower(params.Search)

	r.mu.RLock()
	var matched []*Companion
	for _, c := range r.items {
		if params.OwnerID != "" && c.OwnerID != params.OwnerID {
			continue
		}
		if params.Status != "" && c.Status != params.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		matched = append(matched, clone(c))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	res := &ListResult{Total: len(matched), Page: params.Page, PageSize: params.PageSize, Companions: []*Companion{}}
	start := (params.Page - 1) * params.PageSize
	if start < len(matched) {
		end := min(start+params.PageSize, len(matched))
		res.Companions = matched[start:end]
	}
	return res, nil
}

// clone 深拷贝，避免调用方修改存储内的切片
func clone(c *Companion) *Companion {
	cp := *c
	cp.Specialties = append([]string{}, c.Specialties...)
	cp.KnowledgeLinks = append([]string{}, c.KnowledgeLinks...)
	cp.Adjectives = append([]string{}, c.Adjectives...)
	cp.ActionCapabilities = append([]string{}, c.ActionCapabilities...)
	cp.KnowledgeDocuments = append([]KnowledgeDocument{}, c.KnowledgeDocuments...)
	if c.Workflow != nil {
		w := *c.Workflow
		w.Nodes = append(w.Nodes[:0:0], c.Workflow.Nodes...)
		w.Edges = append(w.Edges[:0:0], c.Workflow.Edges...)
		cp.Workflow = &w
	}
	return &cp
}
