package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	applog "companionforge/internal/platform/log"
	"companionforge/internal/telegram"
)

// WebhookHandler Telegram webhook。响应沿用 Bot API 侧的裸 JSON，不走统一信封。
type WebhookHandler struct {
	bots   map[string]*telegram.Bot
	secret string
}

// SecretTokenHeader Telegram 随每次推送回传 setWebhook 时设置的 secret_token
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// NewWebhookHandler secret 为空时不校验来源
func NewWebhookHandler(bots map[string]*telegram.Bot, secret string) *WebhookHandler {
	if bots == nil {
		bots = map[string]*telegram.Bot{}
	}
	return &WebhookHandler{bots: bots, secret: secret}
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get(SecretTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

// RegisterRoutes 注册路由；任意方法都进入处理器以便返回 405
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/api/telegram/webhook", h.serve(telegram.SageName))
	r.HandleFunc("/api/telegram/webhook_fit", h.serve(telegram.FitnessName))
}

func (h *WebhookHandler) serve(script string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeRaw(w, http.StatusMethodNotAllowed, map[string]string{
				"message": fmt.Sprintf("Method %s not allowed", r.Method),
			})
			return
		}

		if !h.authorized(r) {
			applog.Warn("[Telegram] Webhook rejected: bad secret token", "bot", script, "remote", r.RemoteAddr)
			writeRaw(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}

		bot, ok := h.bots[script]
		if !ok || bot == nil {
			applog.Warn("[Telegram] Webhook hit but bot is not configured", "bot", script)
			writeRaw(w, http.StatusServiceUnavailable, map[string]string{"error": "Bot not configured"})
			return
		}

		var update telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			applog.Error("[Telegram] Webhook error", "bot", script, "error", err)
			writeRaw(w, http.StatusInternalServerError, map[string]string{"error": "Error processing webhook"})
			return
		}

		if err := bot.Handle(r.Context(), &update); err != nil {
			applog.Error("[Telegram] Webhook error", "bot", script, "update_id", update.UpdateID, "error", err)
			writeRaw(w, http.StatusInternalServerError, map[string]string{"error": "Error processing webhook"})
			return
		}
		writeRaw(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
