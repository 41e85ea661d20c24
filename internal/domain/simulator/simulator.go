package simulator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Role 消息发送方
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Message 对话中的一条消息
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Persona 预览对话所需的人设片段
type Persona struct {
	Name         string `json:"name"`
	Personality  string `json:"personality"`
	FirstMessage string `json:"first_message"`
}

const (
	defaultName        = "AI Companion"
	defaultPersonality = "helpful"

	// 打字延迟区间 [MinTypingDelay, MinTypingDelay+typingJitter)
	MinTypingDelay = 500 * time.Millisecond
	typingJitter   = 1000
)

var replyTemplates = []string{
	"As an AI with %s traits, I'd say: That's an interesting point!",
	"Given my %s nature, I think we should consider multiple perspectives on this.",
	"My %s programming suggests that we could explore this topic further.",
	"Interesting question! My %s algorithms are processing the best way to respond.",
	"Based on my %s framework, I'd recommend looking into this more deeply.",
}

// Random 可注入的随机源
type Random interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Greeting 开场白：优先使用 FirstMessage
func Greeting(p Persona) string {
	if msg := strings.TrimSpace(p.FirstMessage); msg != "" {
		return p.FirstMessage
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = defaultName
	}
	return fmt.Sprintf("Hello! I'm %s. How can I assist you today?", name)
}

// Reply 一次模拟回复
type Reply struct {
	Content string        `json:"content"`
	Delay   time.Duration `json:"-"`
}

// Simulator 生成罐头回复，不做任何推理
type Simulator struct {
	rnd Random
}

// New 创建模拟器；rnd 为 nil 时使用全局随机源
func New(rnd Random) *Simulator {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Simulator{rnd: rnd}
}

// Respond 对用户输入生成回复；空白输入返回 ok=false
func (s *Simulator) Respond(p Persona, input string) (Reply, bool) {
	if strings.TrimSpace(input) == "" {
		return Reply{}, false
	}
	personality := strings.TrimSpace(p.Personality)
	if personality == "" {
		personality = defaultPersonality
	}
	tpl := replyTemplates[s.rnd.IntN(len(replyTemplates))]
	delay := MinTypingDelay + time.Duration(s.rnd.IntN(typingJitter))*time.Millisecond
	return Reply{
		Content: fmt.Sprintf(tpl, personality),
		Delay:   delay,
	}, true
}
