package colorlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[37m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorBlue   = "\033[34m"
)

type Options struct {
	Output   io.Writer
	Level    slog.Leveler
	UseColor *bool // nil = auto-detect
}

type ColorLogHandler struct {
	label  string
	out    io.Writer
	level  slog.Leveler
	mu     *sync.Mutex // shared across WithAttrs/WithGroup clones
	attrs  []slog.Attr
	prefix string // group prefix, e.g. "server.http."
	color  bool
}

// New returns a logger writing one line per record:
//
//	2026/10/19 12:00:00  (label)  message  [ key = value ]
func New(label string, opts ...Options) *slog.Logger {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	return slog.New(&ColorLogHandler{
		label: label,
		out:   o.Output,
		level: o.Level,
		mu:    &sync.Mutex{},
		color: detectColor(o.Output, o.UseColor),
	})
}

// ParseLevel maps debug, info, warn/warning and error (any case) to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func detectColor(w io.Writer, override *bool) bool {
	if override != nil {
		return *override
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *ColorLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ColorLogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(h.wrap(colorGray, r.Time.Format("2006/01/02 15:04:05")))
	b.WriteString("  (")
	b.WriteString(h.wrap(colorBlue, h.label))
	b.WriteString(")  ")
	b.WriteString(h.wrap(levelColor(r.Level), levelPrefix(r.Level)+r.Message))

	first := true
	writeAttr := func(a slog.Attr) {
		if first {
			b.WriteString("  ")
			first = false
		} else {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s %s %s %v %s",
			h.wrap(colorGray, "["),
			h.wrap(colorGray, a.Key),
			h.wrap(colorGray, "="),
			a.Value.Any(),
			h.wrap(colorGray, "]"),
		)
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
		return true
	})
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *ColorLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(clone.attrs, h.attrs)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

func (h *ColorLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *ColorLogHandler) wrap(color string, v any) string {
	if !h.color {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%s%v%s", color, v, colorReset)
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

func levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR  "
	case level >= slog.LevelWarn:
		return "WARNING  "
	case level >= slog.LevelInfo:
		return ""
	default:
		return "DEBUG  "
	}
}
