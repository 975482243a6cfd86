// Package logger renders slog records through a zerolog console writer, so
// components keep the log/slog API while operators get compact colored lines.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options tune the console handler.
type Options struct {
	Level   slog.Leveler
	NoColor bool
}

type field struct {
	prefix string
	attr   slog.Attr
}

// Handler is a slog.Handler writing through zerolog.
type Handler struct {
	zl     zerolog.Logger
	level  slog.Leveler
	fields []field
	group  string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a console handler writing to w.
func NewHandler(w io.Writer, opts Options) *Handler {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	cw := zerolog.ConsoleWriter{Out: w, NoColor: opts.NoColor, TimeFormat: consoleTimeFormat}
	return &Handler{zl: zerolog.New(cw).Level(zerolog.TraceLevel), level: level}
}

// New returns a console logger on stdout tagged with component.
func New(component string, level slog.Leveler) *slog.Logger {
	l := slog.New(NewHandler(os.Stdout, Options{Level: level}))
	if component != "" {
		l = l.With("component", component)
	}
	return l
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	e := h.zl.WithLevel(zerologLevel(r.Level))
	if e == nil {
		return nil
	}
	if !r.Time.IsZero() {
		e = e.Time(zerolog.TimestampFieldName, r.Time)
	}
	for _, f := range h.fields {
		addAttr(e, f.prefix, f.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(e, h.group, a)
		return true
	})
	e.Msg(r.Message)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := *h
	cp.fields = make([]field, 0, len(h.fields)+len(attrs))
	cp.fields = append(cp.fields, h.fields...)
	for _, a := range attrs {
		cp.fields = append(cp.fields, field{prefix: h.group, attr: a})
	}
	return &cp
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.group = h.group + name + "."
	return &cp
}

func addAttr(e *zerolog.Event, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key

	switch a.Value.Kind() {
	case slog.KindString:
		e.Str(key, a.Value.String())
	case slog.KindInt64:
		e.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		e.Uint64(key, a.Value.Uint64())
	case slog.KindFloat64:
		e.Float64(key, a.Value.Float64())
	case slog.KindBool:
		e.Bool(key, a.Value.Bool())
	case slog.KindDuration:
		e.Dur(key, a.Value.Duration())
	case slog.KindTime:
		e.Time(key, a.Value.Time())
	case slog.KindGroup:
		// An unnamed group is inlined.
		if a.Key != "" {
			key += "."
		}
		for _, sub := range a.Value.Group() {
			addAttr(e, key, sub)
		}
	default:
		if err, ok := a.Value.Any().(error); ok {
			e.AnErr(key, err)
			return
		}
		e.Interface(key, a.Value.Any())
	}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
