package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-pedidos-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pedidos-api/internal/types"
)

// Observe records the duration of a repository operation and counts it as
// failed when *errp is set. A missing row is a normal outcome, not a failure.
// Intended for defer with a named error return.
func Observe(ctx context.Context, op string, start time.Time, errp *error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if errp != nil && *errp != nil && !errors.Is(*errp, pgx.ErrNoRows) && !errors.Is(*errp, types.ErrNotFound) {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
