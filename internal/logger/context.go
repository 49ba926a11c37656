package logger

import (
	"context"
	"log/slog"
)

// ctxAttrs хранится в контексте целиком; каждое With* кладет новую копию,
// поэтому родительский контекст не видит полей дочернего.
type ctxAttrs struct {
	requestID string
	userID    string
	extra     []any
}

type attrsKey struct{}

func attrsFrom(ctx context.Context) ctxAttrs {
	if ctx == nil {
		return ctxAttrs{}
	}
	a, _ := ctx.Value(attrsKey{}).(ctxAttrs)
	return a
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	a := attrsFrom(ctx)
	a.requestID = requestID
	return context.WithValue(ctx, attrsKey{}, a)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	a := attrsFrom(ctx)
	a.userID = userID
	return context.WithValue(ctx, attrsKey{}, a)
}

// WithFields добавляет произвольные пары ключ-значение ко всем логам
// через этот контекст (например message_id в обработчике очереди).
func WithFields(ctx context.Context, args ...any) context.Context {
	a := attrsFrom(ctx)
	a.extra = append(append([]any(nil), a.extra...), args...)
	return context.WithValue(ctx, attrsKey{}, a)
}

func RequestID(ctx context.Context) string { return attrsFrom(ctx).requestID }

func FromContext(ctx context.Context) *slog.Logger {
	a := attrsFrom(ctx)
	fields := make([]any, 0, 4+len(a.extra))
	if a.requestID != "" {
		fields = append(fields, "request_id", a.requestID)
	}
	if a.userID != "" {
		fields = append(fields, "user_id", a.userID)
	}
	fields = append(fields, a.extra...)

	if len(fields) == 0 {
		return GetLogger()
	}
	return GetLogger().With(fields...)
}

func CtxDebug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	FromContext(ctx).Error(msg, append([]any{"error", err}, args...)...)
}
