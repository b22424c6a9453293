package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 键值对风格的日志接口
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志输出选项
type Options struct {
	Level      string
	Writer     []string // console, file
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    io.Writer // 默认 os.Stderr
}

type zlog struct {
	zl zerolog.Logger
}

// New 根据选项创建基于 zerolog 的日志器，返回的 Closer 用于关闭文件输出
func New(opts Options) (Logger, io.Closer) {
	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)
	for _, w := range opts.Writer {
		switch w {
		case "console":
			out := opts.Console
			if out == nil {
				out = os.Stderr
			}
			writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime})
		case "file":
			lj := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAgeDays,
			}
			writers = append(writers, lj)
			closer = lj
		}
	}
	if len(writers) == 0 {
		return NewNop(), closer
	}
	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()
	return &zlog{zl: zl}, closer
}

// NewWithZerolog 包装已有的 zerolog.Logger
func NewWithZerolog(zl zerolog.Logger) Logger {
	return &zlog{zl: zl}
}

// ParseLevel 解析日志级别，未知级别返回 info
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *zlog) Debug(msg string, kv ...any) { l.log(l.zl.Debug(), msg, kv) }
func (l *zlog) Info(msg string, kv ...any) { l.log(l.zl.Info(), msg, kv) }
func (l *zlog) Warn(msg string, kv ...any) { l.log(l.zl.Warn(), msg, kv) }
func (l *zlog) Error(msg string, kv ...any) { l.log(l.zl.Error(), msg, kv) }

func (l *zlog) With(kv ...any) Logger {
	return &zlog{zl: l.zl.With().Fields(normalize(kv)).Logger()}
}

func (l *zlog) log(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	ev.Fields(normalize(kv)).Msg(msg)
}

// normalize 保证键值对成对出现，落单的值记为 "!BADKEY"
func normalize(kv []any) []any {
	if len(kv)%2 == 0 {
		return kv
	}
	out := make([]any, 0, len(kv)+1)
	out = append(out, kv[:len(kv)-1]...)
	return append(out, "!BADKEY", kv[len(kv)-1])
}

type nop struct{}

// NewNop 返回丢弃所有输出的日志器
func NewNop() Logger { return nop{} }

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any) {}
func (nop) Warn(string, ...any) {}
func (nop) Error(string, ...any) {}
func (n nop) With(...any) Logger { return n }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
