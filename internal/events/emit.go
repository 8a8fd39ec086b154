package events

import (
	"context"
	"log/slog"

	"github.com/mcoot/bughunt/internal/metrics"
	"github.com/mcoot/bughunt/internal/model"
)

// Emit publishes an event, logging and counting failures instead of
// returning them
func Emit(ctx context.Context, publisher Publisher, logger *slog.Logger, event model.Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		logger.Warn("failed to publish event",
			slog.String("type", string(event.Type)),
			slog.String("key", event.Key()),
			slog.String("error", err.Error()))
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "ok").Inc()
}
