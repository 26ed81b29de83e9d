package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables in span statements; dev only
	SlowQueryThresh time.Duration
	DBName          string
}

type dbContextKey string

const queryStartKey dbContextKey = "settlement_query_start"

// RegisterDBTracing installs otelgorm on db and annotates each statement span
// with rows affected, slow-query markers and whether it took row locks.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateStatementSpan(tx, cfg.SlowQueryThresh) }

	cb := db.Callback()
	registrations := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("settlement_trace:before_create", before) },
		func() error { return cb.Query().Before("gorm:query").Register("settlement_trace:before_query", before) },
		func() error { return cb.Update().Before("gorm:update").Register("settlement_trace:before_update", before) },
		func() error { return cb.Delete().Before("gorm:delete").Register("settlement_trace:before_delete", before) },
		func() error { return cb.Row().Before("gorm:row").Register("settlement_trace:before_row", before) },
		func() error { return cb.Raw().Before("gorm:raw").Register("settlement_trace:before_raw", before) },
		func() error { return cb.Create().After("gorm:create").Register("settlement_trace:after_create", after) },
		func() error { return cb.Query().After("gorm:query").Register("settlement_trace:after_query", after) },
		func() error { return cb.Update().After("gorm:update").Register("settlement_trace:after_update", after) },
		func() error { return cb.Delete().After("gorm:delete").Register("settlement_trace:after_delete", after) },
		func() error { return cb.Row().After("gorm:row").Register("settlement_trace:after_row", after) },
		func() error { return cb.Raw().After("gorm:raw").Register("settlement_trace:after_raw", after) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateStatementSpan(tx *gorm.DB, slowThresh time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if strings.Contains(strings.ToUpper(tx.Statement.SQL.String()), "FOR UPDATE") {
		span.SetAttributes(attribute.Bool("db.row_lock", true))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	if start, ok := ctx.Value(queryStartKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > slowThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
