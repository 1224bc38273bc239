package observability

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"flavorwatch/internal/config"
)

const consoleTimeFormat = "02-01-2006 15:04:05"

// Logger wraps zerolog with a key/value call style:
//
//	logger.Info("Run finished", "flavors", 3, "matched", true)
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// NewLogger writes to stdout (console format when env is "dev", JSON otherwise) and,
// when LogPath is set, to a rotating file.
func NewLogger(cfg config.ObservabilityConfig) (*Logger, error) {
	lvl, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var stdout io.Writer = os.Stdout
	if strings.EqualFold(cfg.Env, "dev") || strings.EqualFold(cfg.Env, "development") {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat}
	}

	writers := []io.Writer{stdout}
	var closer io.Closer
	if cfg.LogPath != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, file)
		closer = file
	}

	l := NewWithWriter(zerolog.MultiLevelWriter(writers...), lvl)
	l.closer = closer
	return l, nil
}

// NewWithWriter logs JSON lines to w.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewNop discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.zl.Error().Fields(fields).Msg(msg)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func parseLevel(level string) (zerolog.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	return zerolog.ParseLevel(strings.ToLower(level))
}
