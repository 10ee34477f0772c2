package ui

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the printf-style logger handed to every component. Output goes
// to stderr so that command results on stdout stay pipeable.
type Logger struct {
	Debug bool
	s     *zap.SugaredLogger
}

func NewLogger(debug bool) *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true

	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.DisableCaller = true
		cfg.EncoderConfig.TimeKey = ""
	}

	z, err := cfg.Build()
	if err != nil {
		z = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg.EncoderConfig),
			zapcore.Lock(os.Stderr),
			cfg.Level,
		))
	}

	return &Logger{Debug: debug, s: z.Sugar()}
}

// NopLogger discards everything.
func NopLogger() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// With returns a child logger carrying structured fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{Debug: l.Debug, s: l.s.With(keysAndValues...)}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.s.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.s.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.s.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.s.Errorf(format, args...)
}

func (l *Logger) Sync() {
	_ = l.s.Sync()
}
