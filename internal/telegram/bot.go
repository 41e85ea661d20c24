package telegram

import (
	"context"
	"fmt"
	"time"

	applog "companionforge/internal/platform/log"
	"companionforge/internal/platform/metrics"
)

// DefaultMessageDelay 连续消息之间的停顿，让对话看起来更自然
const DefaultMessageDelay = 800 * time.Millisecond

// BotOptions Bot 的可选依赖
type BotOptions struct {
	Deduper Deduper // 为 nil 时不去重
	Delay   time.Duration
	Metrics *metrics.Collector
	// Sleep 测试时替换，默认按 ctx 可取消地等待
	Sleep func(ctx context.Context, d time.Duration) error
}

// Bot 把一个 webhook 的 update 分发给脚本并逐条发送回复
type Bot struct {
	script  Script
	sender  Sender
	dedup   Deduper
	delay   time.Duration
	metrics *metrics.Collector
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewBot(script Script, sender Sender, opts BotOptions) *Bot {
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Bot{
		script:  script,
		sender:  sender,
		dedup:   opts.Deduper,
		delay:   opts.Delay,
		metrics: opts.Metrics,
		sleep:   opts.Sleep,
	}
}

// Name 脚本名
func (b *Bot) Name() string { return b.script.Name() }

// Handle 处理一次 update。
// 按钮回调回复给 from.id 后应答回调；普通消息回复给 chat.id。
// 重投的 update 直接确认，不再执行脚本。
func (b *Bot) Handle(ctx context.Context, u *Update) error {
	if u == nil {
		return nil
	}
	if b.dedup != nil && u.UpdateID != 0 {
		first, err := b.dedup.Claim(ctx, b.Name(), u.UpdateID)
		if err != nil {
			applog.Warn("[Telegram] Dedup unavailable, processing anyway",
				"bot", b.Name(), "update_id", u.UpdateID, "error", err)
		} else if !first {
			applog.Info("[Telegram] Duplicate update skipped", "bot", b.Name(), "update_id", u.UpdateID)
			b.metrics.WebhookUpdate(b.Name(), "duplicate")
			return nil
		}
	}

	if cq := u.CallbackQuery; cq != nil {
		b.metrics.WebhookUpdate(b.Name(), "callback")
		replies, err := b.script.Trigger(ctx, cq.From.ID, cq.Data)
		if err != nil {
			return fmt.Errorf("%s trigger %q: %w", b.Name(), cq.Data, err)
		}
		if err := b.deliver(ctx, cq.From.ID, replies); err != nil {
			return err
		}
		if err := b.sender.AnswerCallbackQuery(ctx, cq.ID); err != nil {
			return fmt.Errorf("answer callback: %w", err)
		}
	}

	if msg := u.Message; msg != nil {
		kind := "message"
		if msg.HasPhoto() {
			kind = "photo"
		}
		b.metrics.WebhookUpdate(b.Name(), kind)
		replies, err := b.script.OnMessage(ctx, msg)
		if err != nil {
			return fmt.Errorf("%s message: %w", b.Name(), err)
		}
		if err := b.deliver(ctx, msg.Chat.ID, replies); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) deliver(ctx context.Context, chatID int64, replies []Reply) error {
	for i, r := range replies {
		if err := b.sender.SendMessage(ctx, chatID, r.Text, r.Keyboard); err != nil {
			return fmt.Errorf("send message %d/%d: %w", i+1, len(replies), err)
		}
		if b.delay > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				return err
			}
		}
	}
	if len(replies) > 0 {
		applog.Debug("[Telegram] Replies sent", "bot", b.Name(), "chat_id", chatID, "count", len(replies))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
