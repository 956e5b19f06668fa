package logx

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	With(args ...interface{}) Logger
}

type Logx struct {
	sugar *zap.SugaredLogger
}

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(lvl string) zapcore.Level {
	level, ok := levels[strings.ToLower(strings.TrimSpace(lvl))]
	if !ok {
		return zapcore.InfoLevel
	}
	return level
}

// New builds a logger writing to w, or to stderr when w is nil. console
// selects the human readable encoder instead of JSON.
func New(lvl string, console bool, w io.Writer) *Logx {
	if w == nil {
		w = os.Stderr
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.MessageKey = "msg"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if console {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(ParseLevel(lvl)))
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logx{sugar: logger.Sugar()}
}

func Nop() *Logx {
	return &Logx{sugar: zap.NewNop().Sugar()}
}

func (l *Logx) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

func (l *Logx) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *Logx) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *Logx) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logx) With(args ...interface{}) Logger {
	return &Logx{sugar: l.sugar.With(args...)}
}

func (l *Logx) Sync() error {
	return l.sugar.Sync()
}
