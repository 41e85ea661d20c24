package knowledge

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

var (
	// ErrUnsupportedType 没有匹配扩展名的解析器
	ErrUnsupportedType = errors.New("knowledge: unsupported file type")
	// ErrTooLarge 文件超过上传上限
	ErrTooLarge = errors.New("knowledge: file too large")
	// ErrEmpty 解析后没有文本
	ErrEmpty = errors.New("knowledge: no text extracted")
)

// ExcerptRunes 摘要截取长度
const ExcerptRunes = 280

// Registry 扩展名 -> 解析器
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry 创建注册表并注册内置解析器
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(MarkdownParser{})
	r.Register(TextParser{})
	r.Register(PDFParser{})
	r.Register(DOCXParser{})
	return r
}

// Register 注册解析器，覆盖同扩展名的旧解析器
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// Lookup 按文件名扩展名查找解析器
func (r *Registry) Lookup(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	r.mu.RLock()
	p, ok := r.parsers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedType, ext, strings.Join(r.Extensions(), ", "))
	}
	return p, nil
}

// Extensions 已注册扩展名（排序）
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Summary 解析结果摘要，作为知识文档挂到伴侣上
type Summary struct {
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	Title      string    `json:"title,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	Characters int       `json:"characters"`
	Excerpt    string    `json:"excerpt"`
	ParsedAt   time.Time `json:"parsed_at"`
}

// Ingest 读取并解析上传文件。maxBytes<=0 表示不限。
func (r *Registry) Ingest(filename string, src io.Reader, maxBytes int64) (*Summary, error) {
	p, err := r.Lookup(filename)
	if err != nil {
		return nil, err
	}

	if maxBytes > 0 {
		src = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, filename, maxBytes)
	}

	doc, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if doc.Text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, filename)
	}

	return &Summary{
		Filename:   filepath.Base(filename),
		Format:     doc.Format,
		Title:      doc.Title,
		Pages:      doc.Pages,
		Characters: utf8.RuneCountInString(doc.Text),
		Excerpt:    excerpt(doc.Text, ExcerptRunes),
		ParsedAt:   time.Now(),
	}, nil
}

func excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
