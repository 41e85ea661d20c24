package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string          `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string          `json:"log_format" validate:"oneof=text json"`
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Auth      AuthConfig      `json:"auth"`
	Canvas    CanvasConfig    `json:"canvas"`
	Telegram  TelegramConfig  `json:"telegram"`
	Creation  CreationConfig  `json:"creation"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Simulator SimulatorConfig `json:"simulator"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type ServerConfig struct {
	Host                string   `json:"host"`
	Port                int      `json:"port" validate:"min=1,max=65535"`
	ReadTimeoutSeconds  int      `json:"read_timeout_seconds" validate:"min=1"`
	WriteTimeoutSeconds int      `json:"write_timeout_seconds" validate:"min=1"`
	AllowedOrigins      []string `json:"allowed_origins"`
}

// DatabaseConfig 为空时伴侣数据保存在内存中
type DatabaseConfig struct {
	URL                    string `json:"url" validate:"omitempty,url"`
	MaxOpenConns           int    `json:"max_open_conns" validate:"min=1"`
	MaxIdleConns           int    `json:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds" validate:"min=0"`
}

// RedisConfig 为空时告警、积分、对话记录使用内存实现
type RedisConfig struct {
	URL       string `json:"url" validate:"omitempty,url"`
	KeyPrefix string `json:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" validate:"required"`
	JWTIssuer string `json:"jwt_issuer"`
}

type CanvasConfig struct {
	IDGenerator            string `json:"id_generator" validate:"oneof=clock sequence uuid"`
	SessionTTLSeconds      int    `json:"session_ttl_seconds" validate:"min=0"`
	MaxSessions            int    `json:"max_sessions" validate:"min=0"`
	JanitorIntervalSeconds int    `json:"janitor_interval_seconds" validate:"min=1"`
}

type TelegramConfig struct {
	SageToken        string `json:"sage_token"`
	FitnessToken     string `json:"fitness_token"`
	// WebhookSecret 与 setWebhook 的 secret_token 一致；为空时不校验
	WebhookSecret    string `json:"webhook_secret" validate:"omitempty,max=256,alphanum_dash"`
	APIBaseURL       string `json:"api_base_url" validate:"required,url"`
	MessageDelayMS   int    `json:"message_delay_ms" validate:"min=0"`
	TimeoutSeconds   int    `json:"timeout_seconds" validate:"min=1"`
	BreakerFailures  int    `json:"breaker_failures" validate:"min=1"`
	BreakerOpenSecs  int    `json:"breaker_open_seconds" validate:"min=1"`
	DedupTTLSeconds  int    `json:"dedup_ttl_seconds" validate:"min=0"`
	PhotoRewardCoins int    `json:"photo_reward_coins" validate:"min=0"`
}

type CreationConfig struct {
	StageIntervalMS int `json:"stage_interval_ms" validate:"min=1"`
}

type KnowledgeConfig struct {
	MaxUploadMB int `json:"max_upload_mb" validate:"min=1"`
}

// SimulatorConfig 预览对话记录在 Redis 中的保留时长
type SimulatorConfig struct {
	TranscriptTTLSeconds int `json:"transcript_ttl_seconds" validate:"min=0"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
			AllowedOrigins:      []string{"*"},
		},
		Database: DatabaseConfig{
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
		Redis: RedisConfig{
			KeyPrefix: "companionforge",
		},
		Canvas: CanvasConfig{
			IDGenerator:            "clock",
			SessionTTLSeconds:      3600,
			MaxSessions:            1000,
			JanitorIntervalSeconds: 60,
		},
		Telegram: TelegramConfig{
			APIBaseURL:       "https://api.telegram.org",
			MessageDelayMS:   800,
			TimeoutSeconds:   10,
			BreakerFailures:  5,
			BreakerOpenSecs:  30,
			DedupTTLSeconds:  86400,
			PhotoRewardCoins: 10,
		},
		Creation: CreationConfig{
			StageIntervalMS: 2000,
		},
		Knowledge: KnowledgeConfig{
			MaxUploadMB: 10,
		},
		Simulator: SimulatorConfig{
			TranscriptTTLSeconds: 86400,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
func Load() (*AppConfig, error) {
	// .env 非必需，忽略错误
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)
	applyList("CORS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	applyString("DATABASE_URL", &c.Database.URL)
	applyInt("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	applyInt("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	applyInt("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetimeSeconds)

	applyString("REDIS_URL", &c.Redis.URL)
	applyString("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	applyString("CANVAS_ID_GENERATOR", &c.Canvas.IDGenerator)
	applyInt("CANVAS_SESSION_TTL", &c.Canvas.SessionTTLSeconds)
	applyInt("CANVAS_MAX_SESSIONS", &c.Canvas.MaxSessions)
	applyInt("CANVAS_JANITOR_INTERVAL", &c.Canvas.JanitorIntervalSeconds)

	// TELEGRAM_BOT_TOKEN 同时作为两个机器人的缺省 token
	applyString("TELEGRAM_BOT_TOKEN", &c.Telegram.SageToken)
	applyString("TELEGRAM_BOT_TOKEN", &c.Telegram.FitnessToken)
	applyString("TELEGRAM_SAGE_TOKEN", &c.Telegram.SageToken)
	applyString("TELEGRAM_FITNESS_TOKEN", &c.Telegram.FitnessToken)
	applyString("TELEGRAM_WEBHOOK_SECRET", &c.Telegram.WebhookSecret)
	applyString("TELEGRAM_API_BASE_URL", &c.Telegram.APIBaseURL)
	applyInt("TELEGRAM_MESSAGE_DELAY_MS", &c.Telegram.MessageDelayMS)
	applyInt("TELEGRAM_TIMEOUT", &c.Telegram.TimeoutSeconds)
	applyInt("TELEGRAM_BREAKER_FAILURES", &c.Telegram.BreakerFailures)
	applyInt("TELEGRAM_BREAKER_OPEN", &c.Telegram.BreakerOpenSecs)
	applyInt("TELEGRAM_DEDUP_TTL", &c.Telegram.DedupTTLSeconds)
	applyInt("TELEGRAM_PHOTO_REWARD", &c.Telegram.PhotoRewardCoins)

	applyInt("CREATION_STAGE_INTERVAL_MS", &c.Creation.StageIntervalMS)
	applyInt("KNOWLEDGE_MAX_UPLOAD_MB", &c.Knowledge.MaxUploadMB)
	applyInt("SIMULATOR_TRANSCRIPT_TTL", &c.Simulator.TranscriptTTLSeconds)
	applyBool("METRICS_ENABLED", &c.Metrics.Enabled)
}

func (c *AppConfig) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Canvas.IDGenerator = strings.ToLower(strings.TrimSpace(c.Canvas.IDGenerator))
	if c.Canvas.IDGenerator == "" {
		c.Canvas.IDGenerator = "clock"
	}
	c.Telegram.APIBaseURL = strings.TrimRight(c.Telegram.APIBaseURL, "/")
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
}

var validate = newValidator()

var reSecretToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Bot API 只允许 A-Z a-z 0-9 _ - 作为 secret_token
	_ = v.RegisterValidation("alphanum_dash", func(fl validator.FieldLevel) bool {
		return reSecretToken.MatchString(fl.Field().String())
	})
	return v
}

// Validate 按 struct tag 校验配置，返回首个失败字段的可读错误
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Namespace() == "AppConfig.Auth.JWTSecret" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("validate config: %w", err)
}

// ReadTimeout 等为秒级配置的 Duration 便捷方法

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (c CanvasConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c CanvasConfig) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSeconds) * time.Second
}

func (t TelegramConfig) MessageDelay() time.Duration {
	return time.Duration(t.MessageDelayMS) * time.Millisecond
}

func (t TelegramConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

func (t TelegramConfig) BreakerOpen() time.Duration {
	return time.Duration(t.BreakerOpenSecs) * time.Second
}

func (t TelegramConfig) DedupTTL() time.Duration {
	return time.Duration(t.DedupTTLSeconds) * time.Second
}

func (c CreationConfig) StageInterval() time.Duration {
	return time.Duration(c.StageIntervalMS) * time.Millisecond
}

func (s SimulatorConfig) TranscriptTTL() time.Duration {
	return time.Duration(s.TranscriptTTLSeconds) * time.Second
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func applyList(key string, target *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*target = out
}
