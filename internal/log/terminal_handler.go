package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset   = "\033[0m"
	colorFaint   = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
)

// TerminalHandler renders records as single coloured lines for interactive
// runs:
//
//	15:04:05.000 INF collection started categories=3
//
// Attributes attached with WithAttrs are formatted once and reused on every
// record.
type TerminalHandler struct {
	out      io.Writer
	minLevel slog.Leveler
	prefix   string
	groups   []string
	mu       *sync.Mutex
}

var linePool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func newTerminalHandler(w io.Writer, opts *slog.HandlerOptions) *TerminalHandler {
	h := &TerminalHandler{
		out:      w,
		minLevel: slog.LevelInfo,
		mu:       &sync.Mutex{},
	}
	if opts != nil && opts.Level != nil {
		h.minLevel = opts.Level
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel.Level()
}

// Handle writes the record as one coloured line.
func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	line := linePool.Get().(*bytes.Buffer)
	defer func() {
		line.Reset()
		linePool.Put(line)
	}()

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line.WriteString(colorFaint)
	line.WriteString(ts.Format("15:04:05.000"))
	line.WriteString(colorReset)
	line.WriteByte(' ')

	label, color := levelStyle(r.Level)
	line.WriteString(color)
	line.WriteString(label)
	line.WriteString(colorReset)
	line.WriteByte(' ')
	line.WriteString(r.Message)

	line.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(line, a, h.groups)
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(line.Bytes())
	return err
}

// WithAttrs returns a handler whose records carry the given attributes.
// They are rendered eagerly into the line prefix.
func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	for _, a := range attrs {
		writeAttr(&buf, a, h.groups)
	}
	clone := *h
	clone.prefix = h.prefix + buf.String()
	return &clone
}

// WithGroup returns a handler that prefixes subsequent attribute keys with
// the group name.
func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func levelStyle(level slog.Level) (label, color string) {
	switch {
	case level >= slog.LevelError:
		return "ERR", colorRed
	case level >= slog.LevelWarn:
		return "WRN", colorYellow
	case level >= slog.LevelInfo:
		return "INF", colorGreen
	default:
		return "DBG", colorMagenta
	}
}

func writeAttr(buf *bytes.Buffer, a slog.Attr, groups []string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := groups
		if a.Key != "" {
			inner = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			writeAttr(buf, ga, inner)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(colorFaint)
	for _, g := range groups {
		buf.WriteString(g)
		buf.WriteByte('.')
	}
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(colorReset)
	buf.WriteString(attrValue(a.Value))
}

func attrValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && strings.ContainsAny(s, " \t\n\"\\=") {
		return strconv.Quote(s)
	}
	return s
}
