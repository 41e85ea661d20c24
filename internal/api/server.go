package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"companionforge/internal/app/studio"
	"companionforge/internal/domain/companion"
	"companionforge/internal/domain/creation"
	"companionforge/internal/domain/knowledge"
	"companionforge/internal/domain/simulator"
	applog "companionforge/internal/platform/log"
	"companionforge/internal/platform/metrics"
	"companionforge/internal/telegram"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	JWTSecret      string // JWT 签名密钥（必填）
	JWTIssuer      string // JWT 签发者（可选）
	MaxUploadMB    int    // 知识文件上传上限
	WebhookSecret  string // X-Telegram-Bot-Api-Secret-Token，为空时不校验
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxUploadMB:    10,
	}
}

// Dependencies 路由用到的服务；为 nil 的项使用进程内默认实现
type Dependencies struct {
	Sessions   *studio.SessionManager
	Companions companion.Repository
	Knowledge  *knowledge.Registry
	Launches   *creation.Tracker
	Simulator  *simulator.Service
	Bots       map[string]*telegram.Bot // 脚本名 -> bot
	Metrics    *metrics.Collector
}

// Server HTTP 服务器
type Server struct {
	config  *ServerConfig
	deps    Dependencies
	httpSrv *http.Server
}

// NewServer 创建服务器
func NewServer(config *ServerConfig, deps Dependencies) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	if deps.Sessions == nil {
		deps.Sessions = studio.NewSessionManager(studio.Options{Metrics: deps.Metrics})
	}
	if deps.Companions == nil {
		deps.Companions = companion.NewMemoryRepository()
	}
	if deps.Knowledge == nil {
		deps.Knowledge = knowledge.NewRegistry()
	}
	if deps.Launches == nil {
		deps.Launches = creation.NewTracker(creation.DefaultInterval, ActivateOnComplete(deps.Companions))
	}
	if deps.Simulator == nil {
		deps.Simulator = simulator.NewService(nil, nil)
	}
	return &Server{config: config, deps: deps}
}

// Start 启动服务器
func (s *Server) Start() error {
	r, err := s.buildRouter()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 Companion studio API starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	r, err := s.buildRouter()
	if err != nil {
		panic(err)
	}
	return r
}

func (s *Server) buildRouter() (http.Handler, error) {
	if strings.TrimSpace(s.config.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	authMW := authMiddleware(&JWTConfig{
		Secret: s.config.JWTSecret,
		Issuer: s.config.JWTIssuer,
	})

	s.registerPublicRoutes(r)
	s.registerProtectedRoutes(r, authMW)
	return r, nil
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	NewCanvasHandler(s.deps.Sessions).RegisterRoutes(r)
	NewGalleryHandler().RegisterRoutes(r)
	NewSimulatorHandler(s.deps.Simulator).RegisterRoutes(r)
	NewWebhookHandler(s.deps.Bots, s.config.WebhookSecret).RegisterRoutes(r)
}

func (s *Server) registerProtectedRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	companionHandler := NewCompanionHandler(CompanionHandlerConfig{
		Repo:        s.deps.Companions,
		Sessions:    s.deps.Sessions,
		Knowledge:   s.deps.Knowledge,
		Launches:    s.deps.Launches,
		MaxUploadMB: s.config.MaxUploadMB,
	})
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		companionHandler.RegisterRoutes(r)
	})
}
