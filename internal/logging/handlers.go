package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes stamped onto every record, such as the
// current run ID.
type ContextProvider func() []slog.Attr

// fanout delivers each record to every enabled handler. A failing handler
// does not stop delivery to the rest; their errors are joined.
type fanout []slog.Handler

func newFanout(handlers ...slog.Handler) fanout {
	out := make(fanout, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// stamped adds the provider's attributes to each record at handle time, so
// a run ID assigned after Setup still reaches every line.
type stamped struct {
	next     slog.Handler
	provider ContextProvider
}

func (s stamped) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s stamped) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(s.provider()...)
	return s.next.Handle(ctx, r)
}

func (s stamped) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stamped{next: s.next.WithAttrs(attrs), provider: s.provider}
}

func (s stamped) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return stamped{next: s.next.WithGroup(name), provider: s.provider}
}
