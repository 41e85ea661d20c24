package applog

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level     string    // debug | info | warn | error，其他值按 info
	Format    string    // text | json
	Service   string    // 非空时每条日志附带 service 字段
	AddSource bool      // 附带调用位置
	Output    io.Writer // 默认 stdout
}

type level struct {
	slog slog.Level
	zap  zapcore.Level
}

var levels = map[string]level{
	"debug": {slog.LevelDebug, zapcore.DebugLevel},
	"info":  {slog.LevelInfo, zapcore.InfoLevel},
	"warn":  {slog.LevelWarn, zapcore.WarnLevel},
	"error": {slog.LevelError, zapcore.ErrorLevel},
}

func lookupLevel(name string) level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return levels["info"]
}

var (
	mu   sync.Mutex
	base *zap.Logger
)

// Init 以 zap 为后端重建全局 slog logger，标准库 log 也写到同一输出。
// 业务代码统一通过本包的 Info/Warn 等函数输出，消息以 [Component] 开头。
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	lvl := lookupLevel(cfg.Level)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(zapcore.AddSync(out)), lvl.zap), opts...)
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}

	mu.Lock()
	base = logger
	mu.Unlock()
	zap.ReplaceGlobals(logger)

	handler := slogzap.Option{Level: lvl.slog, Logger: logger, AddSource: cfg.AddSource}.NewZapHandler()
	slog.SetDefault(slog.New(handler))

	log.SetOutput(out)
	log.SetFlags(0)
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	mu.Lock()
	logger := base
	mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

func Infof(format string, args ...any)  { slog.Info(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { slog.Error(fmt.Sprintf(format, args...)) }
