package logger

import (
	"context"
	"time"

	ctxutil "github.com/staybook/auth-service/pkg/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogBuilder is a fluent builder for context-aware log entries. Request
// tracking fields (request_id, client_ip, user_id, module, function) are
// pulled from the context automatically; callers chain additional fields
// and finish with Log().
type LogBuilder struct {
	level     zapcore.Level
	message   string
	fields    []zap.Field
	shouldLog bool
}

func newBuilder(ctx context.Context, level zapcore.Level, message string) *LogBuilder {
	lb := &LogBuilder{
		level:     level,
		message:   message,
		fields:    make([]zap.Field, 0, 12),
		shouldLog: GetLogger().Core().Enabled(level),
	}
	if lb.shouldLog {
		lb.extractContextFields(ctx)
	}
	return lb
}

// DebugWithContext starts a debug-level entry.
func DebugWithContext(ctx context.Context, message string) *LogBuilder {
	return newBuilder(ctx, zapcore.DebugLevel, message)
}

// InfoWithContext starts an info-level entry.
func InfoWithContext(ctx context.Context, message string) *LogBuilder {
	return newBuilder(ctx, zapcore.InfoLevel, message)
}

// WarnWithContext starts a warn-level entry.
func WarnWithContext(ctx context.Context, message string) *LogBuilder {
	return newBuilder(ctx, zapcore.WarnLevel, message)
}

// ErrorWithContext starts an error-level entry.
func ErrorWithContext(ctx context.Context, message string) *LogBuilder {
	return newBuilder(ctx, zapcore.ErrorLevel, message)
}

func (lb *LogBuilder) extractContextFields(ctx context.Context) {
	if ctx == nil {
		return
	}

	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		lb.fields = append(lb.fields, zap.String("request_id", requestID))
	}

	if clientIP := ctxutil.GetClientIP(ctx); clientIP != "" {
		lb.fields = append(lb.fields, zap.String("client_ip", clientIP))
	}

	if userAgent := ctxutil.GetUserAgent(ctx); userAgent != "" {
		lb.fields = append(lb.fields, zap.String("user_agent", userAgent))
	}

	if userID, ok := ctxutil.GetUserID(ctx); ok {
		lb.fields = append(lb.fields, zap.Uint("ctx_user_id", userID))
	}

	if module := ctxutil.GetModule(ctx); module != "" {
		lb.fields = append(lb.fields, zap.String("module", module))
	}

	if function := ctxutil.GetFunction(ctx); function != "" {
		lb.fields = append(lb.fields, zap.String("function", function))
	}
}

// Field methods

func (lb *LogBuilder) String(key, value string) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.String(key, value))
	}
	return lb
}

func (lb *LogBuilder) Int(key string, value int) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Int(key, value))
	}
	return lb
}

func (lb *LogBuilder) Int64(key string, value int64) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Int64(key, value))
	}
	return lb
}

func (lb *LogBuilder) Uint(key string, value uint) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Uint(key, value))
	}
	return lb
}

func (lb *LogBuilder) Bool(key string, value bool) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Bool(key, value))
	}
	return lb
}

func (lb *LogBuilder) Time(key string, value time.Time) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Time(key, value))
	}
	return lb
}

func (lb *LogBuilder) Duration(value time.Duration) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Duration("duration", value))
	}
	return lb
}

func (lb *LogBuilder) Err(err error) *LogBuilder {
	if lb.shouldLog && err != nil {
		lb.fields = append(lb.fields, zap.Error(err))
	}
	return lb
}

func (lb *LogBuilder) Any(key string, value interface{}) *LogBuilder {
	if lb.shouldLog {
		lb.fields = append(lb.fields, zap.Any(key, value))
	}
	return lb
}

// Log emits the entry at the builder's level.
func (lb *LogBuilder) Log() {
	if !lb.shouldLog {
		return
	}

	switch lb.level {
	case zapcore.DebugLevel:
		GetLogger().Debug(lb.message, lb.fields...)
	case zapcore.InfoLevel:
		GetLogger().Info(lb.message, lb.fields...)
	case zapcore.WarnLevel:
		GetLogger().Warn(lb.message, lb.fields...)
	case zapcore.ErrorLevel:
		GetLogger().Error(lb.message, lb.fields...)
	}
}
