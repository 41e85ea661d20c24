package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	applog "companionforge/internal/platform/log"
	"companionforge/internal/platform/metrics"
)

// DefaultBaseURL Telegram Bot API 地址
const DefaultBaseURL = "https://api.telegram.org"

// ErrNoToken 未配置 bot token
var ErrNoToken = errors.New("telegram: bot token not configured")

// Sender 发送消息的最小接口，测试中替换为假实现
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// ClientConfig Bot API 客户端配置
type ClientConfig struct {
	Name    string // 熔断器名称，一般是脚本名
	Token   string
	BaseURL string
	Timeout time.Duration

	// 连续失败达到 BreakerFailures 次后熔断 BreakerOpen 时长
	BreakerFailures uint32
	BreakerOpen     time.Duration
}

// Client 调用 Bot API，外层套熔断器
type Client struct {
	config  ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

// APIError Bot API 返回 ok=false
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed (status %d): %s", e.Method, e.StatusCode, e.Description)
}

// NewClient 创建客户端；m 可为 nil
func NewClient(config ClientConfig, m *metrics.Collector) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = 5
	}
	if config.BreakerOpen <= 0 {
		config.BreakerOpen = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "telegram"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   config.Timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	failures := config.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 1,
		Timeout:     config.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			applog.Warn("[Telegram] Circuit breaker state changed",
				"bot", name, "from", from.String(), "to", to.String())
		},
		// 4xx 是调用方问题，不计入熔断
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
	})

	return &Client{
		config:  config,
		http:    &http.Client{Transport: transport, Timeout: config.Timeout},
		breaker: cb,
		metrics: m,
	}
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard Keyboard `json:"inline_keyboard"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
}

// SendMessage 以 HTML 模式发送消息，kb 为空时不带键盘
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	req := sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"}
	if len(kb) > 0 {
		req.ReplyMarkup = &replyMarkup{InlineKeyboard: kb}
	}
	return c.call(ctx, "sendMessage", req)
}

// AnswerCallbackQuery 结束按钮的 loading 状态
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: callbackID})
}

func (c *Client) call(ctx context.Context, method string, payload interface{}) error {
	if c.config.Token == "" {
		return ErrNoToken
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, method, payload)
	})
	if err != nil {
		c.metrics.TelegramError(method)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("telegram %s: %w", method, err)
		}
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// url 里带 token，不直接透出
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	result := gjson.ParseBytes(raw)
	if resp.StatusCode != http.StatusOK || !result.Get("ok").Bool() {
		desc := result.Get("description").String()
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: desc}
	}
	return nil
}
