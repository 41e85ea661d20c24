package telegram

import (
	"context"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"
)

// SageName DeFi Sage 脚本名
const SageName = "sage"

// Sage 加密行情顾问脚本，价格提醒落到 AlertStore
type Sage struct {
	alerts AlertStore
	now    func() time.Time
}

func NewSage(alerts AlertStore) *Sage {
	if alerts == nil {
		alerts = NewMemoryAlertStore()
	}
	return &Sage{alerts: alerts, now: time.Now}
}

func (s *Sage) Name() string { return SageName }

var setAlertAgain = row(btn("🔄 Set Another Alert", "price_alerts"))

func (s *Sage) Trigger(ctx context.Context, chatID int64, trigger string) ([]Reply, error) {
	switch trigger {
	case TriggerStart:
		return []Reply{
			say("🧙‍♂️ Welcome to DeFi Sage! Your trusted advisor for crypto insights and alerts."),
			say("What wisdom do you seek today?",
				row(btn("🔥 Hot DeFi Projects", "defi_hot")),
				row(btn("🚨 Set Price Alerts", "price_alerts")),
				row(btn("📈 Market Analysis", "market_analysis")),
				row(btn("🐕 Meme Coins", "meme_trending")),
			),
		}, nil

	case "price_alerts":
		return []Reply{
			say("⚡️ Current Active Alerts:\n\n"+
				"1. ETH < $3,000 ⬇️\n"+
				"2. BTC > $52,000 ⬆️\n"+
				"3. PEPE < $0.000001 ⬇️\n\n"+
				"Select alert type:",
				row(btn("⬆️ Above Price", "alert_above"), btn("⬇️ Below Price", "alert_below")),
				row(btn("📊 View Alerts", "view_alerts"), btn("❌ Clear Alerts", "clear_alerts")),
			),
		}, nil

	case "alert_above":
		return []Reply{
			say("📈 Popular tokens to track:\n\n" +
				"• BTC ($48,250)\n" +
				"• ETH ($2,850)\n" +
				"• SOL ($98.5)\n" +
				"• PEPE ($0.0000009)\n\n" +
				"Send token and price like:\n" +
				"<code>BTC 50000</code>"),
		}, nil

	case "alert_below":
		return []Reply{
			say("📉 Support levels to watch:\n\n" +
				"• BTC ($47,500)\n" +
				"• ETH ($2,800)\n" +
				"• SOL ($95.0)\n" +
				"• PEPE ($0.0000008)\n\n" +
				"Send token and price like:\n" +
				"<code>ETH 2800</code>"),
		}, nil

	case "view_alerts":
		return s.viewAlerts(ctx, chatID)

	case "clear_alerts":
		n, err := s.alerts.ClearAlerts(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("clear alerts: %w", err)
		}
		return []Reply{say(fmt.Sprintf("❌ Cleared %d alert(s).", n), setAlertAgain)}, nil

	case "market_analysis":
		return []Reply{
			say("🧙‍♂️ DeFi Sage's Market Vision:\n\n" +
				"🌍 Market Overview:\n" +
				"• Market Sentiment: Bullish\n" +
				"• 24h Volume: $52B (+8%)\n" +
				"• BTC Dominance: 51%\n\n" +
				"⚠️ Critical Levels:\n" +
				"BTC: $47,500 Support | $49,800 Resist\n" +
				"ETH: $2,800 Support | $3,100 Resist\n\n" +
				"🔥 Trending:\n" +
				"1. L2s (+18% 24h)\n" +
				"2. Gaming (+15% 24h)\n" +
				"3. Meme (+12% 24h)"),
			say("Want to set price alerts for these levels?",
				row(btn("🚨 Set Alert", "price_alerts")),
				row(btn("🔄 Refresh Analysis", "market_analysis")),
			),
		}, nil

	case "defi_hot":
		return []Reply{
			say("Choose your path of enlightenment:",
				row(btn("💸 Yield Farms", "defi_yield"), btn("🔄 DEX", "defi_dex")),
				row(btn("🏦 Lending", "defi_lending"), btn("🎮 GameFi", "defi_gamefi")),
				row(btn("🚨 Price Alerts", "price_alerts")),
			),
		}, nil

	case "meme_trending":
		return []Reply{
			say("🧙‍♂️ The Sage's Meme Watchlist:\n\n" +
				"1. 🐸 PEPE\n" +
				"• Price: $0.0000009\n" +
				"• 24h: +15%\n" +
				"• Alert: Set at $0.000001 ⬆️\n\n" +
				"2. 🤖 WOJAK\n" +
				"• Price: $0.0004\n" +
				"• 24h: +8%\n" +
				"• Volume: $2.5M\n\n" +
				"3. 🦊 SHIB\n" +
				"• Price: $0.00001\n" +
				"• 24h: +5%\n" +
				"• Volume: $150M"),
			say("⚠️ The Sage advises: Meme coins are highly volatile!",
				row(btn("🚨 Set Alert", "price_alerts")),
				row(btn("🔄 Refresh Prices", "meme_trending")),
			),
		}, nil
	}
	return nil, nil
}

func (s *Sage) viewAlerts(ctx context.Context, chatID int64) ([]Reply, error) {
	alerts, err := s.alerts.ListAlerts(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if len(alerts) == 0 {
		return []Reply{say("📭 You have no alerts yet.\n\nSend token and price like:\n<code>BTC 50000</code>", setAlertAgain)}, nil
	}
	var sb strings.Builder
	sb.WriteString("📊 Your Alerts:\n\n")
	for i, a := range alerts {
		fmt.Fprintf(&sb, "%d. %s at $%s\n", i+1, html.EscapeString(a.Token), html.EscapeString(a.Target))
	}
	return []Reply{say(strings.TrimRight(sb.String(), "\n"),
		row(btn("🔄 Set Another Alert", "price_alerts"), btn("❌ Clear Alerts", "clear_alerts")),
	)}, nil
}

// OnMessage /start 进入主菜单；"TOKEN PRICE" 形式的文本设置提醒
func (s *Sage) OnMessage(ctx context.Context, msg *Message) ([]Reply, error) {
	text := strings.TrimSpace(msg.Text)
	if text == TriggerStart {
		return s.Trigger(ctx, msg.Chat.ID, TriggerStart)
	}

	alert, ok := ParseAlert(text)
	if !ok {
		return nil, nil
	}
	alert.CreatedAt = s.now()
	if err := s.alerts.AddAlert(ctx, msg.Chat.ID, alert); err != nil {
		return nil, fmt.Errorf("add alert: %w", err)
	}
	return []Reply{
		say(fmt.Sprintf("🚨 Alert set!\n\nToken: %s\nTarget: $%s\n\nI'll notify you when the price crosses this level.",
			html.EscapeString(alert.Token), html.EscapeString(alert.Target)), setAlertAgain),
	}, nil
}

// ParseAlert 解析 "TOKEN PRICE"；token 转大写，价格须为有限非负数，原文保留用于展示
func ParseAlert(text string) (Alert, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 || strings.HasPrefix(fields[0], "/") {
		return Alert{}, false
	}
	price, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return Alert{}, false
	}
	return Alert{
		Token:  strings.ToUpper(fields[0]),
		Target: fields[1],
		Price:  price,
	}, true
}
