package logger

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	databaseKey  contextKey = "odoo_db"
	userIDKey    contextKey = "odoo_uid"
)

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithDatabase stores the Odoo database the request targets
func WithDatabase(ctx context.Context, logger *zap.Logger, db string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, databaseKey, db)
	enriched := logger.With(zap.String("db", db))
	return WithContext(ctx, enriched), enriched
}

// WithUserID stores the authenticated Odoo uid
func WithUserID(ctx context.Context, logger *zap.Logger, uid int) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, userIDKey, uid)
	enriched := logger.With(zap.String("uid", strconv.Itoa(uid)))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request id or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetDatabase returns the Odoo database or ""
func GetDatabase(ctx context.Context) string {
	db, _ := ctx.Value(databaseKey).(string)
	return db
}

// GetUserID returns the Odoo uid or 0
func GetUserID(ctx context.Context) int {
	uid, _ := ctx.Value(userIDKey).(int)
	return uid
}

// WithTraceContext adds trace_id and span_id when ctx carries a valid span
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
