package transfer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying the given correlation id.
// Reads and writes started with the context log and report it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id of the context, or an empty
// string.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// correlationID resolves the id of an operation: the explicit one, then
// the context one, then a new random id.
func correlationID(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id := CorrelationID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// Log attribute keys.
const (
	attrCorrelationID = "correlation_id"
	attrTable         = "table"
	attrStart         = "start"
	attrEnd           = "end"
)

func rangeAttrs(id, table string, start, end int) []any {
	return []any{
		slog.String(attrCorrelationID, id),
		slog.String(attrTable, table),
		slog.Int(attrStart, start),
		slog.Int(attrEnd, end),
	}
}
