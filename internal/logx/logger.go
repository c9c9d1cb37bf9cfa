// Package logx provides the small structured logger used across the
// memory attribute manager. It is adapted from the host kernel's own
// logging convention, trimmed to the native (non-WASM) target.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

// Logger is a minimal, level-gated, component-tagged structured logger.
type Logger struct {
	mu         sync.Mutex
	level      Level
	component  string
	output     io.Writer
	timeFormat string
}

// Config configures a Logger.
type Config struct {
	Level      Level
	Component  string
	Output     io.Writer
	TimeFormat string
}

// New creates a Logger from Config, filling in sensible defaults.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05.000"
	}
	return &Logger{
		level:      cfg.Level,
		component:  cfg.Component,
		output:     cfg.Output,
		timeFormat: cfg.TimeFormat,
	}
}

// Default returns an Info-level logger tagged with component.
func Default(component string) *Logger {
	return New(Config{Level: Info, Component: component})
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field   { return Field{key, value} }
func Uint64(key string, v uint64) Field { return Field{key, v} }
func Bool(key string, v bool) Field     { return Field{key, v} }
func Err(err error) Field               { return Field{"error", err} }

func (f Field) format() string {
	switch v := f.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case error:
		return fmt.Sprintf("%q", v.Error())
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(Error, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().Format(l.timeFormat))
	b.WriteString("] [")
	b.WriteString(fmt.Sprintf("%-5s", levelNames[level]))
	b.WriteString("] ")
	if l.component != "" {
		b.WriteString("[")
		b.WriteString(l.component)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(f.format())
	}
	b.WriteString("\n")

	l.output.Write([]byte(b.String()))
}
