package generate

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/foundrydata/foundrygen/schema"
)

// LogLevel represents the severity level for logs.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	default:
		return LevelWarn
	}
}

// Logger is the interface used by the engine for logging.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a child logger augmented with the provided fields.
	With(fields map[string]any) Logger
}

// textFormatter emits compact single-line text logs.
// Format: [LEVEL] ts msg key1=val1 key2=val2 ...
type textFormatter struct {
	includeTimestamp bool
}

func (f *textFormatter) format(ts time.Time, level LogLevel, msg string, fields map[string]any) []byte {
	var b strings.Builder
	b.Grow(128)

	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if f.includeTimestamp {
		b.WriteString(ts.UTC().Format(time.RFC3339Nano))
		b.WriteByte(' ')
	}
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(safeSprint(fields[k]))
		}
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func safeSprint(v any) string {
	switch t := v.(type) {
	case string:
		if t == "" || strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// defaultLogger is a thread-safe logger supporting With() context.
type defaultLogger struct {
	out        io.Writer
	level      LogLevel
	formatter  *textFormatter
	baseFields map[string]any
	mu         *sync.Mutex // shared with children
}

// NewLogger creates a text logger at level. If w is nil, os.Stderr is used.
func NewLogger(level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &defaultLogger{
		out:        w,
		level:      level,
		formatter:  &textFormatter{includeTimestamp: true},
		baseFields: make(map[string]any),
		mu:         &sync.Mutex{},
	}
}

// NopLogger returns a logger that discards all output.
func NopLogger() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)     {}
func (noopLogger) Infof(string, ...any)      {}
func (noopLogger) Warnf(string, ...any)      {}
func (noopLogger) Errorf(string, ...any)     {}
func (l noopLogger) With(map[string]any) Logger { return l }

func (l *defaultLogger) enabled(level LogLevel) bool {
	return level <= l.level
}

func (l *defaultLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &defaultLogger{
		out:        l.out,
		level:      l.level,
		formatter:  l.formatter,
		baseFields: merged,
		mu:         l.mu,
	}
}

func (l *defaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *defaultLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *defaultLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *defaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *defaultLogger) logf(level LogLevel, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := l.formatter.format(time.Now(), level, msg, l.baseFields)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

// ----------------------------------------------------------------------------
// Helpers: node summaries for debug logs
// ----------------------------------------------------------------------------

// nodeSummary returns a compact one-line description of a node's shape.
func nodeSummary(n *schema.Node) string {
	switch {
	case n == nil:
		return "Top"
	case n.IsFalse():
		return "false"
	case n.IsTrue():
		return "true"
	}
	typ := strings.Join(n.Type, "|")
	switch {
	case n.HasConst:
		return fmt.Sprintf("const(%s)", safeSprint(n.Const))
	case n.HasEnum:
		return fmt.Sprintf("%s(enum:%d)", typ, len(n.Enum))
	case n.Ref != "":
		return "$ref(" + n.Ref + ")"
	case n.DynamicRef != "":
		return "$dynamicRef(" + n.DynamicRef + ")"
	case schema.Len(n.Properties) > 0:
		return "object{" + truncateList(n.PropertyNamesSorted(), 5) + "}"
	case len(n.OneOf) > 0:
		return fmt.Sprintf("oneOf(%d)", len(n.OneOf))
	case len(n.AnyOf) > 0:
		return fmt.Sprintf("anyOf(%d)", len(n.AnyOf))
	case typ == "":
		return "Top"
	}
	return typ
}

// truncateList joins items with "," and appends +N if truncated.
func truncateList(items []string, limit int) string {
	if limit <= 0 || len(items) <= limit {
		return strings.Join(items, ",")
	}
	return strings.Join(items[:limit], ",") + fmt.Sprintf(",+%d", len(items)-limit)
}
