package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a level name to a LogLevel, case-insensitively.
func ParseLevel(s string) (LogLevel, bool) {
	for level, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return level, true
		}
	}
	return INFO, false
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorPurple = "\033[35m"
)

var levelColors = map[LogLevel]string{
	DEBUG: colorGray,
	INFO:  colorBlue,
	WARN:  colorYellow,
	ERROR: colorRed,
	FATAL: colorPurple,
}

// sink is shared between a logger and its named children.
type sink struct {
	mu         sync.Mutex
	out        io.Writer
	level      LogLevel
	colorize   bool
	showCaller bool
	showTime   bool
	timeFormat string
}

type Logger struct {
	sink   *sink
	prefix string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

// DefaultConfig logs INFO and above to stderr, with colors only when
// stderr is a terminal.
func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   isTerminal(os.Stderr),
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	return &Logger{
		sink: &sink{
			out:        cfg.Output,
			level:      cfg.Level,
			colorize:   cfg.Colorize,
			showCaller: cfg.ShowCaller,
			showTime:   cfg.ShowTime,
			timeFormat: cfg.TimeFormat,
		},
		prefix: cfg.Prefix,
	}
}

// GetLogger returns the process wide logger. LOG_LEVEL overrides the level.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			cfg.Level = level
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// Named returns a child logger that tags every line with name and shares
// the parent's output and level.
func (l *Logger) Named(name string) *Logger {
	prefix := "[" + name + "]"
	if l.prefix != "" {
		prefix = l.prefix + " " + prefix
	}
	return &Logger{sink: l.sink, prefix: prefix}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = w
}

func (l *Logger) SetColorize(colorize bool) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.colorize = colorize
}

func (l *Logger) SetShowCaller(show bool) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.showCaller = show
}

func (l *Logger) format(level LogLevel, msg string, args ...any) string {
	s := l.sink
	var b strings.Builder

	if s.showTime {
		b.WriteString(time.Now().Format(s.timeFormat))
		b.WriteByte(' ')
	}

	tag := "[" + level.String() + "]"
	if s.colorize {
		tag = levelColors[level] + tag + colorReset
	}
	b.WriteString(tag)

	if s.showCaller {
		if _, file, line, ok := runtime.Caller(3); ok {
			if idx := strings.LastIndex(file, "/"); idx >= 0 {
				file = file[idx+1:]
			}
			fmt.Fprintf(&b, " %s:%d", file, line)
		}
	}

	if l.prefix != "" {
		b.WriteByte(' ')
		b.WriteString(l.prefix)
	}

	b.WriteByte(' ')
	if len(args) > 0 {
		fmt.Fprintf(&b, msg, args...)
	} else {
		b.WriteString(msg)
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.sink.mu.Lock()
	if level < l.sink.level {
		l.sink.mu.Unlock()
		return
	}
	fmt.Fprintln(l.sink.out, l.format(level, msg, args...))
	l.sink.mu.Unlock()

	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(ERROR, format, args...) }

// Fatalf logs at FATAL level and exits the process.
func (l *Logger) Fatalf(format string, args ...any) { l.log(FATAL, format, args...) }

// Package-level helpers on the default logger

func Debugf(format string, args ...any) { GetLogger().log(DEBUG, format, args...) }
func Infof(format string, args ...any)  { GetLogger().log(INFO, format, args...) }
func Warnf(format string, args ...any)  { GetLogger().log(WARN, format, args...) }
func Errorf(format string, args ...any) { GetLogger().log(ERROR, format, args...) }
func Fatalf(format string, args ...any) { GetLogger().log(FATAL, format, args...) }

func SetLevel(level LogLevel) { GetLogger().SetLevel(level) }
