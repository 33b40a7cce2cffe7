package sim

import (
	"log/slog"
	"reflect"
)

// EventLogger is an hook that prints the event information
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *slog.Logger) *EventLogger {
	h := new(EventLogger)
	h.logger = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	attrs := []any{
		"module", "engine",
		"time_ns", uint64(evt.Time()),
		"event", reflect.TypeOf(evt).String(),
	}

	if comp, ok := evt.Handler().(Named); ok {
		attrs = append(attrs, "handler", comp.Name())
	}

	h.logger.Debug("event", attrs...)
}
