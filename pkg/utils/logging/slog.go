package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var bufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
	UseColor bool

	// ShowTimestamp prepends the wall-clock time to every line. Off by
	// default: the simulator reports virtual time in the message itself,
	// and wall-clock timestamps would break run-to-run output comparison.
	ShowTimestamp bool
	TimeFormat    string
	LevelWidth    int
}

func DefaultOptions() PrettyHandlerOptions {
	return PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
		UseColor:      true,
		ShowTimestamp: false,
		TimeFormat:    time.RFC3339,
		LevelWidth:    7,
	}
}

// PrettyHandler renders records as "LEVEL   message | key=value ...".
type PrettyHandler struct {
	opts   PrettyHandlerOptions
	writer io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr

	colorTime    func(...any) string
	colorLevel   map[slog.Level]func(...any) string
	colorMessage func(...any) string
	colorFields  func(...any) string
}

func NewPrettyHandler(w io.Writer, opts *PrettyHandlerOptions) *PrettyHandler {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}

	if opts.TimeFormat == "" {
		opts.TimeFormat = time.RFC3339
	}
	if opts.LevelWidth < 5 {
		opts.LevelWidth = 7
	}

	h := &PrettyHandler{
		opts:   *opts,
		writer: w,
		mu:     &sync.Mutex{},
		attrs:  make([]slog.Attr, 0),
	}
	h.initColorFuncs()

	return h
}

func (h *PrettyHandler) initColorFuncs() {
	if !h.opts.UseColor {
		noColor := func(a ...any) string { return fmt.Sprint(a...) }
		h.colorTime = noColor
		h.colorMessage = noColor
		h.colorFields = noColor
		h.colorLevel = make(map[slog.Level]func(...any) string)
		for _, level := range []slog.Level{
			slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError,
		} {
			h.colorLevel[level] = noColor
		}
		return
	}

	h.colorTime = color.New(color.FgHiBlack).SprintFunc()
	h.colorMessage = color.New(color.FgCyan).SprintFunc()
	h.colorFields = color.New(color.FgWhite).SprintFunc()

	h.colorLevel = map[slog.Level]func(...any) string{
		slog.LevelDebug: color.New(color.FgMagenta).SprintFunc(),
		slog.LevelInfo:  color.New(color.FgBlue).SprintFunc(),
		slog.LevelWarn:  color.New(color.FgYellow).SprintFunc(),
		slog.LevelError: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.SlogOpts.Level.Level()
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	buf := bufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufPool.Put(buf)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.ShowTimestamp {
		buf.WriteString(h.colorTime(r.Time.Format(h.opts.TimeFormat)))
		buf.WriteByte(' ')
	}

	buf.WriteString(h.formatLevel(r.Level))
	buf.WriteByte(' ')
	buf.WriteString(h.colorMessage(r.Message))

	fields := h.collectFields(r)
	if fields != "" {
		buf.WriteString(" | ")
		buf.WriteString(h.colorFields(fields))
	}

	buf.WriteByte('\n')
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	newHandler := &PrettyHandler{
		opts:   h.opts,
		writer: h.writer,
		mu:     h.mu,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
	newHandler.initColorFuncs()

	return newHandler
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	// groups are flattened; the simulator's fields are shallow
	return h
}

func (h *PrettyHandler) formatLevel(level slog.Level) string {
	levelStr := strings.ToUpper(level.String())

	if h.opts.LevelWidth > 0 {
		levelStr = fmt.Sprintf("%-*s", h.opts.LevelWidth, levelStr)
	}

	if colorFunc, ok := h.colorLevel[level]; ok {
		return colorFunc(levelStr)
	}
	return levelStr
}

func (h *PrettyHandler) collectFields(r slog.Record) string {
	var sb strings.Builder

	writeAttr := func(attr slog.Attr) {
		value := attr.Value.Resolve()
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(attr.Key)
		sb.WriteByte('=')
		switch value.Kind() {
		case slog.KindTime:
			sb.WriteString(value.Time().Format(h.opts.TimeFormat))
		case slog.KindDuration:
			sb.WriteString(value.Duration().String())
		default:
			fmt.Fprintf(&sb, "%v", value.Any())
		}
	}

	for _, attr := range h.attrs {
		writeAttr(attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		writeAttr(attr)
		return true
	})

	return sb.String()
}
