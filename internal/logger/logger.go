package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var current atomic.Pointer[slog.Logger]

// Init настраивает глобальный логгер.
// development - текстовый формат и уровень debug, test - только warn и выше,
// остальное - JSON.
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

func InitWithWriter(env string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "development", "dev", "local":
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(w, opts)
	case "test":
		opts.Level = slog.LevelWarn
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler).With("service", "nutriplan")
	current.Store(l)
	slog.SetDefault(l)
}

// GetLogger возвращает глобальный логгер; до Init это slog.Default()
func GetLogger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }

func Info(msg string, args ...any) { GetLogger().Info(msg, args...) }

func Warn(msg string, args ...any) { GetLogger().Warn(msg, args...) }

func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }

func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err)
}

// WorkerLog - единый формат для cron-задач и обработчика чата
func WorkerLog(worker, operation string, err error, args ...any) {
	l := GetLogger().With("worker", worker, "operation", operation)
	if err != nil {
		l.Error("worker operation failed", append(append([]any(nil), args...), "error", err)...)
		return
	}
	l.Info("worker operation completed", args...)
}

// DBLog: ошибки на error, остальное на debug
func DBLog(operation string, duration time.Duration, err error) {
	l := GetLogger().With("operation", operation, "duration_ms", duration.Milliseconds())
	if err != nil {
		l.Error("database operation failed", "error", err)
		return
	}
	l.Debug("database operation")
}
