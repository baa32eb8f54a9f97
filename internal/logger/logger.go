package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置，由 config.LogConfig 实现
type Config interface {
	GetLevel() string
	GetOutput() string
	GetFile() string
}

// Logger 自定义日志器
type Logger struct {
	zapLogger *zap.Logger
}

// 日志文件轮转参数
const (
	rotateMaxSizeMB  = 100
	rotateMaxBackups = 3
	rotateMaxAgeDays = 28
)

var defaultLogger = mustNew(zapcore.InfoLevel, zapcore.Lock(os.Stdout))

func mustNew(level zapcore.Level, ws zapcore.WriteSyncer) *Logger {
	l, err := newWithWriter(level, ws)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	return l
}

// Init 根据配置初始化默认日志器，output 为 file 时按大小轮转
func Init(cfg Config) error {
	level := ParseLevel(cfg.GetLevel())

	var ws zapcore.WriteSyncer
	switch strings.ToLower(cfg.GetOutput()) {
	case "file":
		if cfg.GetFile() == "" {
			return fmt.Errorf("log file path is empty")
		}
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.GetFile(),
			MaxSize:    rotateMaxSizeMB,
			MaxBackups: rotateMaxBackups,
			MaxAge:     rotateMaxAgeDays,
			Compress:   true,
		})
	case "stderr":
		ws = zapcore.Lock(os.Stderr)
	default:
		ws = zapcore.Lock(os.Stdout)
	}

	l, err := newWithWriter(level, ws)
	if err != nil {
		return err
	}
	SetDefaultLogger(l)
	return nil
}

func newWithWriter(level zapcore.Level, ws zapcore.WriteSyncer) (*Logger, error) {
	if ws == nil {
		return nil, fmt.Errorf("log writer is nil")
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), ws, zap.NewAtomicLevelAt(level))
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).With(zap.String("service", "grants"))
	return &Logger{zapLogger: zapLogger}, nil
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.MessageKey = "message"
	return ec
}

func (l *Logger) log(level zapcore.Level, format string, args ...interface{}) {
	if ce := l.zapLogger.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// Sync 同步日志
func (l *Logger) Sync() {
	_ = l.zapLogger.Sync()
}

// SetDefaultLogger 设置默认日志器
func SetDefaultLogger(l *Logger) {
	if defaultLogger != nil {
		defaultLogger.Sync()
	}
	defaultLogger = l
}

func Debug(format string, args ...interface{}) {
	defaultLogger.log(zapcore.DebugLevel, format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.log(zapcore.InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.log(zapcore.WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.log(zapcore.ErrorLevel, format, args...)
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.log(zapcore.FatalLevel, format, args...)
}

func Sync() {
	defaultLogger.Sync()
}

// ParseLevel 解析日志级别字符串，无法识别时使用 info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zapcore.WarnLevel
	case "":
		return zapcore.InfoLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
