package logger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// GormLogger 将 gorm 日志输出到默认日志器
type GormLogger struct {
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger 创建 gorm 日志适配器
func NewGormLogger(level gormLogger.LogLevel) *GormLogger {
	return &GormLogger{level: level, slowThreshold: 200 * time.Millisecond}
}

func (g *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Info {
		Info(msg, args...)
	}
}

func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Warn {
		Warn(msg, args...)
	}
}

func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Error {
		Error(msg, args...)
	}
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		Error("gorm query failed: %v [%s] rows=%d sql=%s", err, elapsed, rows, sql)
	case elapsed > g.slowThreshold && g.level >= gormLogger.Warn:
		sql, rows := fc()
		Warn("gorm slow query [%s] rows=%d sql=%s", elapsed, rows, sql)
	case g.level >= gormLogger.Info:
		sql, rows := fc()
		Debug("gorm query [%s] rows=%d sql=%s", elapsed, rows, sql)
	}
}
