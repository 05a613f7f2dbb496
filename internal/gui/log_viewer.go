package gui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// LogViewer is a widget that displays status and log messages, newest
// first.
type LogViewer struct {
	widget.BaseWidget

	container  *fyne.Container
	logEntry   *widget.Entry
	scrollView *container.Scroll

	mu          sync.Mutex
	messages    []string
	maxMessages int
	now         func() time.Time
}

// NewLogViewer creates a new log viewer widget
func NewLogViewer() *LogViewer {
	v := &LogViewer{
		maxMessages: 500,
		now:         time.Now,
	}

	// Read-only multiline entry keeps the text selectable
	v.logEntry = widget.NewMultiLineEntry()
	v.logEntry.Disable()
	v.logEntry.Wrapping = fyne.TextWrapWord

	v.scrollView = container.NewScroll(v.logEntry)
	v.scrollView.SetMinSize(fyne.NewSize(0, 100))

	v.container = container.NewBorder(
		widget.NewLabel("Activity (newest first):"),
		nil,
		nil,
		nil,
		v.scrollView,
	)

	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *LogViewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.container)
}

// AddMessage adds a timestamped message. It is safe to call from any
// goroutine.
func (v *LogViewer) AddMessage(message string) {
	text := v.push(message)

	fyne.Do(func() {
		v.logEntry.SetText(text)
		v.scrollView.Offset = fyne.NewPos(0, 0)
		v.scrollView.Refresh()
	})
}

// push records message and returns the text to display.
func (v *LogViewer) push(message string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	full := fmt.Sprintf("[%s] %s", v.now().Format("15:04:05"), message)
	v.messages = append([]string{full}, v.messages...)
	if len(v.messages) > v.maxMessages {
		v.messages = v.messages[:v.maxMessages]
	}
	return strings.Join(v.messages, "\n")
}

// Messages returns the recorded messages, newest first.
func (v *LogViewer) Messages() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.messages...)
}

// Log adds a formatted message.
func (v *LogViewer) Log(format string, args ...any) {
	v.AddMessage(fmt.Sprintf(format, args...))
}

// viewerHandler passes records to next and shows those at minLevel or
// above in the viewer.
type viewerHandler struct {
	next     slog.Handler
	viewer   *LogViewer
	minLevel slog.Level
	attrs    []slog.Attr
}

// Handler returns a slog handler that mirrors warnings and errors logged
// through next into the viewer.
func (v *LogViewer) Handler(next slog.Handler) slog.Handler {
	return &viewerHandler{next: next, viewer: v, minLevel: slog.LevelWarn}
}

func (h *viewerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel || h.next.Enabled(ctx, level)
}

func (h *viewerHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel {
		h.viewer.AddMessage(formatRecord(r, h.attrs))
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *viewerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.next = h.next.WithAttrs(attrs)
	out.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &out
}

func (h *viewerHandler) WithGroup(name string) slog.Handler {
	out := *h
	out.next = h.next.WithGroup(name)
	return &out
}

// formatRecord renders r as "LEVEL message key=value ...".
func formatRecord(r slog.Record, attrs []slog.Attr) string {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteString(" ")
	b.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range attrs {
		write(a)
	}
	r.Attrs(write)
	return b.String()
}
