package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger — интерфейс логгера, который передаётся во все слои приложения.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	Sync() error
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewLogger создаёт логгер на zap.
// LOG_FORMAT=json включает production-конфиг, иначе консольный вывод для разработки.
// LOG_LEVEL переопределяет уровень: debug, info, warn, error.
func NewLogger() (Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &zapLogger{l: l.Sugar()}, nil
}

// NewNopLogger возвращает логгер, который ничего не пишет. Используется в тестах.
func NewNopLogger() Logger {
	return &zapLogger{l: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	z.l.Debugf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	z.l.Infof(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	z.l.Warnf(format, args...)
}

func (z *zapLogger) Errorf(err error, format string, args ...any) {
	z.l.Errorw(fmt.Sprintf(format, args...), zap.Error(err))
}

func (z *zapLogger) Sync() error {
	return z.l.Sync()
}
