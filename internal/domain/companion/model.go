package companion

import (
	"strings"
	"time"

	"companionforge/internal/domain/canvas"
)

// Status 伴侣生命周期状态
type Status string

const (
	StatusDraft    Status = "draft"
	StatusCreating Status = "creating"
	StatusActive   Status = "active"
)

// Framework 代理运行框架
type Framework string

const (
	FrameworkEliza  Framework = "eliza"
	FrameworkGoat   Framework = "goat"
	FrameworkZerepy Framework = "zerepy"
)

// LaunchType 代币发行方式
type LaunchType string

const (
	LaunchNormal  LaunchType = "normal"
	LaunchFair    LaunchType = "fair"
	LaunchNoToken LaunchType = "no-token"
	LaunchNFT     LaunchType = "nft"
)

// KnowledgeDocument 已上传知识文件的摘要（原文不保存）
type KnowledgeDocument struct {
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	Pages      int       `json:"pages,omitempty"`
	Characters int       `json:"characters"`
	Excerpt    string    `json:"excerpt"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Companion 伴侣人设记录
type Companion struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Status  Status `json:"status"`

	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Image       string `json:"image,omitempty"`

	TelegramBotName  string `json:"telegram_bot_name"`
	TelegramToken    string `json:"-"`
	TelegramTokenSet bool   `json:"telegram_token_set"`
	EnableTelegram   bool   `json:"enable_telegram"`

	Specialties        []string            `json:"specialties"`
	KnowledgeLinks     []string            `json:"knowledge_links"`
	KnowledgeDocuments []KnowledgeDocument `json:"knowledge_documents"`

	Personality  string   `json:"personality"`
	FirstMessage string   `json:"first_message"`
	Lore         string   `json:"lore"`
	Style        string   `json:"style"`
	Adjectives   []string `json:"adjectives"`

	Framework          Framework  `json:"framework"`
	ImageGeneration    bool       `json:"image_generation"`
	VideoGeneration    bool       `json:"video_generation"`
	VoiceChat          bool       `json:"voice_chat"`
	LaunchType         LaunchType `json:"launch_type"`
	ActionCapabilities []string   `json:"action_capabilities"`

	Workflow *canvas.Snapshot `json:"workflow,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize 补齐枚举默认值与空列表，刷新 TelegramTokenSet
func (c *Companion) Normalize() {
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if !c.Framework.valid() {
		c.Framework = FrameworkEliza
	}
	if !c.LaunchType.valid() {
		c.LaunchType = LaunchNormal
	}
	c.Specialties = cleanList(c.Specialties)
	c.KnowledgeLinks = cleanList(c.KnowledgeLinks)
	c.Adjectives = cleanList(c.Adjectives)
	c.ActionCapabilities = cleanList(c.ActionCapabilities)
	if c.KnowledgeDocuments == nil {
		c.KnowledgeDocuments = []KnowledgeDocument{}
	}
	c.TelegramTokenSet = c.TelegramToken != ""
}

// DisplayName 名称为空时使用 "AI Companion"
func (c *Companion) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return "AI Companion"
}

func (f Framework) valid() bool {
	switch f {
	case FrameworkEliza, FrameworkGoat, FrameworkZerepy:
		return true
	}
	return false
}

func (l LaunchType) valid() bool {
	switch l {
	case LaunchNormal, LaunchFair, LaunchNoToken, LaunchNFT:
		return true
	}
	return false
}

// Draft 创建/更新请求体。指针字段为 nil 表示不修改。
type Draft struct {
	Name               *string   `json:"name"`
	Ticker             *string   `json:"ticker"`
	Description        *string   `json:"description"`
	Type               *string   `json:"type"`
	Image              *string   `json:"image"`
	TelegramBotName    *string   `json:"telegram_bot_name"`
	TelegramToken      *string   `json:"telegram_token"`
	EnableTelegram     *bool     `json:"enable_telegram"`
	Specialties        *[]string `json:"specialties"`
	KnowledgeLinks     *[]string `json:"knowledge_links"`
	Personality        *string   `json:"personality"`
	FirstMessage       *string   `json:"first_message"`
	Lore               *string   `json:"lore"`
	Style              *string   `json:"style"`
	Adjectives         *[]string `json:"adjectives"`
	Framework          *string   `json:"framework"`
	ImageGeneration    *bool     `json:"image_generation"`
	VideoGeneration    *bool     `json:"video_generation"`
	VoiceChat          *bool     `json:"voice_chat"`
	LaunchType         *string   `json:"launch_type"`
	ActionCapabilities *[]string `json:"action_capabilities"`
}

// Apply 把请求中出现的字段写入 c，然后 Normalize
func (d Draft) Apply(c *Companion) {
	setString(&c.Name, d.Name)
	setString(&c.Ticker, d.Ticker)
	setString(&c.Description, d.Description)
	setString(&c.Type, d.Type)
	setString(&c.Image, d.Image)
	setString(&c.TelegramBotName, d.TelegramBotName)
	setString(&c.TelegramToken, d.TelegramToken)
	setBool(&c.EnableTelegram, d.EnableTelegram)
	setList(&c.Specialties, d.Specialties)
	setList(&c.KnowledgeLinks, d.KnowledgeLinks)
	setString(&c.Personality, d.Personality)
	setString(&c.FirstMessage, d.FirstMessage)
	setString(&c.Lore, d.Lore)
	setString(&c.Style, d.Style)
	setList(&c.Adjectives, d.Adjectives)
	if d.Framework != nil {
		c.Framework = Framework(strings.ToLower(strings.TrimSpace(*d.Framework)))
	}
	setBool(&c.ImageGeneration, d.ImageGeneration)
	setBool(&c.VideoGeneration, d.VideoGeneration)
	setBool(&c.VoiceChat, d.VoiceChat)
	if d.LaunchType != nil {
		c.LaunchType = LaunchType(strings.ToLower(strings.TrimSpace(*d.LaunchType)))
	}
	setList(&c.ActionCapabilities, d.ActionCapabilities)
	c.Normalize()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v *[]string) {
	if v != nil {
		*dst = append([]string(nil), (*v)...)
	}
}

// cleanList 去除首尾空白、空项与重复项，保持顺序
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
