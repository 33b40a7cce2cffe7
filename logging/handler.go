// Package logging provides the log format of the simulator.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Handler writes records as a timestamp, the attribute values in brackets,
// and the message:
//
//	[2024/01/02 15:04:05] [config] Simulation type: its
type Handler struct {
	h   slog.Handler
	mu  *sync.Mutex
	out io.Writer

	attrs []slog.Attr
}

// NewHandler creates a Handler that writes to o.
func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &Handler{
		out: o,
		h: slog.NewTextHandler(o, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.AddSource,
		}),
		mu: &sync.Mutex{},
	}
}

// Enabled tells if records of the level are written.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

// WithAttrs returns a Handler that writes attrs before the attributes of
// every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	return &Handler{
		h:     h.h.WithAttrs(attrs),
		out:   h.out,
		mu:    h.mu,
		attrs: merged,
	}
}

// WithGroup returns a Handler for the group.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h: h.h.WithGroup(name), out: h.out, mu: h.mu, attrs: h.attrs}
}

// Handle writes one record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	strs := []string{r.Time.Format("[2006/01/02 15:04:05]")}

	if r.Level != slog.LevelInfo {
		strs = append(strs, "["+r.Level.String()+"]")
	}

	for _, a := range h.attrs {
		strs = append(strs, bracket(a))
	}

	r.Attrs(func(a slog.Attr) bool {
		strs = append(strs, bracket(a))
		return true
	})

	strs = append(strs, r.Message)

	b := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.out.Write(b)

	return err
}

func bracket(a slog.Attr) string {
	if a.Key == "module" {
		return fmt.Sprintf("[%s]", a.Value.String())
	}

	return fmt.Sprintf("[%s=%s]", a.Key, a.Value.String())
}

// ParseLevel converts a level name from the settings to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(name)))
	if err != nil {
		return slog.LevelInfo, errors.Wrapf(err, "log level %q", name)
	}

	return level, nil
}

// NewLogger creates a logger with the simulator format.
func NewLogger(o io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(o, &slog.HandlerOptions{Level: level}))
}
