package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"companionforge/internal/api"
	"companionforge/internal/app/studio"
	"companionforge/internal/db/postgres"
	redisdb "companionforge/internal/db/redis"
	"companionforge/internal/domain/companion"
	"companionforge/internal/domain/creation"
	"companionforge/internal/domain/knowledge"
	"companionforge/internal/domain/simulator"
	"companionforge/internal/platform/config"
	applog "companionforge/internal/platform/log"
	"companionforge/internal/platform/metrics"
	"companionforge/internal/telegram"
)

// MetricsNamespace Prometheus 指标前缀
const MetricsNamespace = "companionforge"

// Services 进程内装配好的全部服务
type Services struct {
	Server   *api.Server
	Sessions *studio.SessionManager
	Bots     map[string]*telegram.Bot
	Metrics  *metrics.Collector

	janitorInterval time.Duration
	db              *sql.DB
	redis           *redis.Client
}

// Build 按配置装配服务。DATABASE_URL / REDIS_URL 为空时退化为内存实现。
func Build(ctx context.Context, cfg *config.AppConfig) (*Services, error) {
	s := &Services{janitorInterval: cfg.Canvas.JanitorInterval()}

	if cfg.Metrics.Enabled {
		s.Metrics = metrics.New(MetricsNamespace)
	}

	repo, err := s.openRepository(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		client, err := redisdb.Open(ctx, cfg.Redis.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = client
	} else {
		applog.Info("ℹ️  No REDIS_URL set, alerts, rewards and transcripts kept in memory")
	}

	s.Sessions = studio.NewSessionManager(studio.Options{
		IDGenerator: cfg.Canvas.IDGenerator,
		TTL:         cfg.Canvas.SessionTTL(),
		MaxSessions: cfg.Canvas.MaxSessions,
		Metrics:     s.Metrics,
	})

	s.Bots = s.buildBots(cfg)

	var transcripts simulator.TranscriptStore
	if s.redis != nil {
		transcripts = redisdb.NewTranscriptStore(s.redis, cfg.Redis.KeyPrefix, cfg.Simulator.TranscriptTTL())
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout()
	serverConfig.WriteTimeout = cfg.Server.WriteTimeout()
	serverConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	serverConfig.JWTSecret = cfg.Auth.JWTSecret
	serverConfig.JWTIssuer = cfg.Auth.JWTIssuer
	serverConfig.MaxUploadMB = cfg.Knowledge.MaxUploadMB
	serverConfig.WebhookSecret = cfg.Telegram.WebhookSecret

	s.Server = api.NewServer(serverConfig, api.Dependencies{
		Sessions:   s.Sessions,
		Companions: repo,
		Knowledge:  knowledge.NewRegistry(),
		Launches:   creation.NewTracker(cfg.Creation.StageInterval(), api.ActivateOnComplete(repo)),
		Simulator:  simulator.NewService(nil, transcripts),
		Bots:       s.Bots,
		Metrics:    s.Metrics,
	})
	return s, nil
}

func (s *Services) openRepository(ctx context.Context, cfg *config.AppConfig) (companion.Repository, error) {
	if cfg.Database.URL == "" {
		applog.Info("ℹ️  No DATABASE_URL set, companions kept in memory")
		return companion.NewMemoryRepository(), nil
	}
	db, err := postgres.Open(ctx, cfg.Database.URL,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		time.Duration(cfg.Database.ConnMaxLifetimeSeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}
	s.db = db
	applog.Info("✅ Connected to PostgreSQL")

	repo := postgres.NewRepository(db)
	if err := repo.EnsureTables(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// buildBots 为配置了 token 的脚本创建 bot；未配置的脚本 webhook 返回 503
func (s *Services) buildBots(cfg *config.AppConfig) map[string]*telegram.Bot {
	tg := cfg.Telegram

	var (
		alerts  telegram.AlertStore
		ledger  telegram.Ledger
		deduper telegram.Deduper
	)
	if s.redis != nil {
		alerts = redisdb.NewAlertStore(s.redis, cfg.Redis.KeyPrefix)
		ledger = redisdb.NewRewardLedger(s.redis, cfg.Redis.KeyPrefix)
		if tg.DedupTTLSeconds > 0 {
			deduper = redisdb.NewUpdateDeduper(s.redis, cfg.Redis.KeyPrefix, tg.DedupTTL())
		}
	} else if tg.DedupTTLSeconds > 0 {
		deduper = telegram.NewMemoryDeduper(tg.DedupTTL())
	}

	scripts := telegram.NewScriptRegistry()
	scripts.Register(telegram.NewSage(alerts))
	scripts.Register(telegram.NewFitness(ledger, tg.PhotoRewardCoins))

	tokens := map[string]string{
		telegram.SageName:    tg.SageToken,
		telegram.FitnessName: tg.FitnessToken,
	}

	bots := make(map[string]*telegram.Bot)
	for _, name := range scripts.Names() {
		token := tokens[name]
		if token == "" {
			applog.Warn("[Telegram] No token configured, webhook disabled", "bot", name)
			continue
		}
		script, _ := scripts.Get(name)
		client := telegram.NewClient(telegram.ClientConfig{
			Name:            name,
			Token:           token,
			BaseURL:         tg.APIBaseURL,
			Timeout:         tg.Timeout(),
			BreakerFailures: uint32(tg.BreakerFailures),
			BreakerOpen:     tg.BreakerOpen(),
		}, s.Metrics)
		bots[name] = telegram.NewBot(script, client, telegram.BotOptions{
			Deduper: deduper,
			Delay:   tg.MessageDelay(),
			Metrics: s.Metrics,
		})
		applog.Infof("✅ Telegram bot ready: %s", name)
	}
	return bots
}

// RunJanitor 后台回收空闲画布会话，ctx 取消后退出
func (s *Services) RunJanitor(ctx context.Context) {
	go s.Sessions.RunJanitor(ctx, s.janitorInterval)
}

// Close 释放数据库与 Redis 连接
func (s *Services) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			applog.Warn("[Storage] Close postgres failed", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			applog.Warn("[Redis] Close failed", "error", err)
		}
	}
}

// Migrate 仅执行建表
func Migrate(ctx context.Context, cfg *config.AppConfig) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}
	db, err := postgres.Open(ctx, cfg.Database.URL, 1, 1, time.Minute)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.NewRepository(db).EnsureTables(ctx)
}
