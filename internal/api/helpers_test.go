package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"companionforge/internal/app/studio"
	"companionforge/internal/domain/companion"
	"companionforge/internal/domain/creation"
	"companionforge/internal/telegram"
)

const testSecret = "test-secret"

type testEnv struct {
	handler  http.Handler
	repo     *companion.MemoryRepository
	sessions *studio.SessionManager
	sender   *recordingSender
}

type recordingSender struct {
	texts    []string
	chats    []int64
	answered []string
	err      error
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string, _ telegram.Keyboard) error {
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	s.chats = append(s.chats, chatID)
	return nil
}

func (s *recordingSender) AnswerCallbackQuery(_ context.Context, id string) error {
	s.answered = append(s.answered, id)
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := companion.NewMemoryRepository()
	sessions := studio.NewSessionManager(studio.Options{IDGenerator: "sequence"})
	sender := &recordingSender{}
	noSleep := func(context.Context, time.Duration) error { return nil }

	cfg := DefaultServerConfig()
	cfg.JWTSecret = testSecret
	cfg.MaxUploadMB = 1
	server := NewServer(cfg, Dependencies{
		Sessions:   sessions,
		Companions: repo,
		Launches:   creation.NewTracker(time.Millisecond, ActivateOnComplete(repo)),
		Bots: map[string]*telegram.Bot{
			telegram.SageName:    telegram.NewBot(telegram.NewSage(nil), sender, telegram.BotOptions{Sleep: noSleep}),
			telegram.FitnessName: telegram.NewBot(telegram.NewFitness(nil, 10), sender, telegram.BotOptions{Sleep: noSleep}),
		},
	})
	return &testEnv{handler: server.Handler(), repo: repo, sessions: sessions, sender: sender}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func userToken(t *testing.T, sub string) string {
	return signToken(t, jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()})
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// data 解析统一信封中的 data 字段
func data(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst), rr.Body.String())
}
