package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSlowQueryThreshold flags gateway store statements slower than this
const DefaultSlowQueryThreshold = 200 * time.Millisecond

type queryStartKey struct{}

// DBTracing instruments the gateway store (API keys, webhook deliveries,
// duplication jobs) with otelgorm spans and slow statement events.
type DBTracing struct {
	dbSystem  string
	threshold time.Duration
	logger    *zap.Logger
}

// NewDBTracing creates the plugin. threshold <= 0 uses DefaultSlowQueryThreshold.
func NewDBTracing(dbSystem string, threshold time.Duration, logger *zap.Logger) *DBTracing {
	if threshold <= 0 {
		threshold = DefaultSlowQueryThreshold
	}
	return &DBTracing{dbSystem: dbSystem, threshold: threshold, logger: logger}
}

// Register installs otelgorm without query variables, then the timing callbacks
func (t *DBTracing) Register(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(t.dbSystem),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("gateway_timing:before_create", t.before),
		cb.Query().Before("gorm:query").Register("gateway_timing:before_query", t.before),
		cb.Update().Before("gorm:update").Register("gateway_timing:before_update", t.before),
		cb.Delete().Before("gorm:delete").Register("gateway_timing:before_delete", t.before),
		cb.Raw().Before("gorm:raw").Register("gateway_timing:before_raw", t.before),
		cb.Create().After("gorm:create").Register("gateway_timing:after_create", t.after),
		cb.Query().After("gorm:query").Register("gateway_timing:after_query", t.after),
		cb.Update().After("gorm:update").Register("gateway_timing:after_update", t.after),
		cb.Delete().After("gorm:delete").Register("gateway_timing:after_delete", t.after),
		cb.Raw().After("gorm:raw").Register("gateway_timing:after_raw", t.after),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	t.logger.Info("Database tracing enabled",
		zap.String("db_system", t.dbSystem),
		zap.Duration("slow_query_threshold", t.threshold),
	)
	return nil
}

func (t *DBTracing) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t *DBTracing) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > t.threshold {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", t.threshold.Milliseconds()),
		))
	}
}
